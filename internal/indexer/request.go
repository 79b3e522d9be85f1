package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

const maxConversationName = 255

// BuildRequest asks the engine to (re)build one conversation. Conversation
// and Language are optional: the name defaults to the chatlog file name and
// the language to the configured one.
type BuildRequest struct {
	Conversation string `json:"conversation,omitempty"`
	ChatlogPath  string `json:"chatlog_path"`
	Language     string `json:"language,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrInvalidInput }

// Validate checks the request before any file is touched.
func (r BuildRequest) Validate() error {
	errs := make(map[string]string)
	path := strings.TrimSpace(r.ChatlogPath)
	if path == "" {
		errs["chatlog_path"] = "chatlog_path is required"
	} else if !strings.HasSuffix(path, chatlog.ChatlogSuffix) {
		errs["chatlog_path"] = fmt.Sprintf("chatlog_path must end in %s", chatlog.ChatlogSuffix)
	}
	if r.Conversation != "" {
		switch {
		case len(r.Conversation) > maxConversationName:
			errs["conversation"] = fmt.Sprintf("conversation must be at most %d characters", maxConversationName)
		case strings.ContainsAny(r.Conversation, `/\`) || r.Conversation == "." || r.Conversation == "..":
			errs["conversation"] = "conversation must not contain path separators"
		}
	}
	if r.Language != "" {
		if _, err := tokenizer.ParseLanguage(r.Language); err != nil {
			errs["language"] = err.Error()
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// name returns the conversation the request builds.
func (r BuildRequest) name() string {
	if r.Conversation != "" {
		return r.Conversation
	}
	return chatlog.ConversationName(r.ChatlogPath)
}
