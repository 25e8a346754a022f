package dto

import "notifyd/internal/model"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionRequest struct {
	Token string `json:"token"`
}

type SessionResponse struct {
	LoggedIn  bool `json:"logged_in"`
	Connected bool `json:"connected"`
}

type HistoryResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
}
