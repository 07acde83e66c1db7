package auth

import "net/http"

func SetSession(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{Name: "userId", Value: userID, HttpOnly: true})
}
