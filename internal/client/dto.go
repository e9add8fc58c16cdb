package client

import "conduit/internal/types"

type createSessionRequest struct {
	Title *string `json:"title,omitempty"`
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

type sessionsResponse struct {
	Sessions []*types.ChatSession `json:"sessions"`
	Total    int                  `json:"total,omitempty"`
}

type messagesResponse struct {
	Messages []*types.Message `json:"messages"`
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}
