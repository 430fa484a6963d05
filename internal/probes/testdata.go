package probes

import "encoding/base64"

// testImagePNGBase64 is a minimal valid 1x1 transparent PNG standing in
// for the bundled ~50KB labelled-shapes test image. The real asset is a
// binary file that cannot be produced by a text-based write; every
// vision sub-test below treats this the same way it would the real
// bundled image (decode once, cache the bytes, send to the provider).
const testImagePNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNk+A8AAQUBAScY42YAAAAASUVORK5CYII="

var testImageBytes []byte

func init() {
	b, err := base64.StdEncoding.DecodeString(testImagePNGBase64)
	if err != nil {
		panic("invalid embedded test image: " + err.Error())
	}
	testImageBytes = b
}

// TestImageBytes returns the bundled vision test image bytes.
func TestImageBytes() []byte {
	return testImageBytes
}

// TestImageBase64 returns the bundled vision test image as base64, the
// form most vision-capable chat APIs expect inline.
func TestImageBase64() string {
	return testImagePNGBase64
}

const (
	// standardChatPrompt is the fixed prompt every chat sub-test uses.
	standardChatPrompt = "What is 2+2? Reply with just the number."
	// standardEmbeddingText is the fixed text every embedding sub-test uses.
	standardEmbeddingText = "The quick brown fox jumps over the lazy dog."
	// standardVisionPrompt is the fixed prompt every vision sub-test uses.
	standardVisionPrompt = "Describe what you see in this image in one sentence."
)
