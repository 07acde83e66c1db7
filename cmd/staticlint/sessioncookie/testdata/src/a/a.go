package a

import "net/http"

func login(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "userId", Value: "1"}) // want "cookies must be written by internal/auth"
}

func header(w http.ResponseWriter) {
	w.Header().Set("X-Frame-Options", "DENY")
}
