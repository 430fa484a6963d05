package httpapi

// These pages are static shells; all dynamic data is fetched by the
// browser from the JSON endpoints and rendered by static/app.js, which is
// responsible for escaping every value it inserts (spec.md §4.7's output
// escaping rule). No server-side templating is needed since nothing here
// interpolates a request-derived value.

const loginPageHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>preflight — sign in</title>
<link rel="stylesheet" href="/static/app.css"></head>
<body>
  <form id="login-form" method="post" action="/login">
    <h1>preflight</h1>
    <label>Username <input name="username" autocomplete="username" required></label>
    <label>Password <input name="password" type="password" autocomplete="current-password" required></label>
    <button type="submit">Sign in</button>
  </form>
  <script src="/static/app.js"></script>
</body>
</html>`

const dashboardPageHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>preflight</title>
<link rel="stylesheet" href="/static/app.css"></head>
<body>
  <div id="app"></div>
  <script src="/static/app.js"></script>
</body>
</html>`
