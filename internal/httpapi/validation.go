package httpapi

import "regexp"

var (
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)
	dns1123Pattern  = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?(\.[a-z0-9]([-a-z0-9]*[a-z0-9])?)*$`)
)

func validHostname(h string) bool {
	return h != "" && len(h) <= 253 && hostnamePattern.MatchString(h)
}

func validNamespace(ns string) bool {
	return ns != "" && len(ns) <= 253 && dns1123Pattern.MatchString(ns)
}
