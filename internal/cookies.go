package internal

const (
	COOKIE_REDIRECT_NAME     = "schoolbridge_redirect"
	COOKIE_CONVERSATION_NAME = "schoolbridge_explore"
)
