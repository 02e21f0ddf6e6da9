package handler

import "net/http"

// Webデモの簡易ページ。本体はアプリ向けJSON APIであり、
// ここはブラウザからの動作確認用の最小限のHTMLのみを返す。

// csrfFormScript はCookieのCSRFトークンをフォームのhiddenフィールドに
// 転記するスクリプト。フォーム送信はヘッダーを付けられないため、
// double-submitの照合はフィールド経由で行う。
const csrfFormScript = `
var m = document.cookie.match(/(?:^|; )csrf_token=([^;]+)/);
if (m) {
  var fields = document.querySelectorAll('input[name="csrf_token"]');
  for (var i = 0; i < fields.length; i++) { fields[i].value = m[1]; }
}
`

const demoSignInPage = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>サインイン - lltracker</title></head>
<body>
<h1>サインイン</h1>
<form method="post" action="/demo/validate">
  <label>ユーザー名 <input type="text" name="username" required></label>
  <label>パスワード <input type="password" name="password" required></label>
  <input type="hidden" name="csrf_token">
  <button type="submit">サインイン</button>
</form>
<p><a href="/demo/new">新規登録はこちら</a></p>
<script>` + csrfFormScript + `</script>
</body>
</html>`

const demoNewUserPage = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>新規登録 - lltracker</title></head>
<body>
<h1>新規登録</h1>
<form method="post" action="/demo/new">
  <label>ユーザー名 <input type="text" name="username" required></label>
  <label>パスワード <input type="password" name="password" required></label>
  <input type="hidden" name="csrf_token">
  <button type="submit">登録</button>
</form>
<p><a href="/demo/signin">サインインはこちら</a></p>
<script>` + csrfFormScript + `</script>
</body>
</html>`

const demoStartPage = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>位置記録 - lltracker</title></head>
<body>
<h1>位置記録デモ</h1>
<form method="post" action="/demo/addlocation">
  <label>緯度 <input type="text" name="latitude" required></label>
  <label>経度 <input type="text" name="longitude" required></label>
  <input type="hidden" name="csrf_token">
  <button type="submit">記録</button>
</form>
<form method="post" action="/demo/destroy">
  <input type="hidden" name="csrf_token">
  <button type="submit">履歴を全削除</button>
</form>
<form method="post" action="/demo/signout">
  <input type="hidden" name="csrf_token">
  <button type="submit">サインアウト</button>
</form>
<p><a href="/demo/locations">履歴をJSONで表示</a></p>
<script>` + csrfFormScript + `</script>
</body>
</html>`

// DemoPagesHandler はWebデモの静的ページを返すハンドラー。
type DemoPagesHandler struct{}

// NewDemoPagesHandler はDemoPagesHandlerを生成する。
func NewDemoPagesHandler() *DemoPagesHandler {
	return &DemoPagesHandler{}
}

// SignInPage はサインインフォームを返す。GET /demo/signin
func (h *DemoPagesHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, demoSignInPage)
}

// NewUserPage は新規登録フォームを返す。GET /demo/new
func (h *DemoPagesHandler) NewUserPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, demoNewUserPage)
}

// StartPage は位置記録ページを返す。GET /demo/start
func (h *DemoPagesHandler) StartPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, demoStartPage)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
