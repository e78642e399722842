package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"choco-backend/internal/chat"
	"choco-backend/internal/client/agent"
)

type chatCreateRequest struct {
	Title string `json:"title,omitempty"`
}

func (s *Server) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	// An empty body creates a chat with the default title.
	var req chatCreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.chats.Create(r.Context(), userID(r), req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleChatList(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.chats.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load chat")
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type chatRenameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleChatRename(w http.ResponseWriter, r *http.Request) {
	var req chatRenameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := s.chats.Rename(r.Context(), userID(r), mux.Vars(r)["id"], req.Title); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to rename chat")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to delete chat")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chats.Messages(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load messages")
		}
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type chatSendRequest struct {
	Content string `json:"content"`
}

type chatSendResponse struct {
	UserMessage      *chat.Message `json:"user_message"`
	AssistantMessage *chat.Message `json:"assistant_message,omitempty"`
}

// handleChatSend records the user message, forwards it to the agent and
// records the reply. When the agent is disabled the user message is
// still stored and the response carries no assistant message.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	uid := userID(r)
	chatID := mux.Vars(r)["id"]

	c, err := s.chats.Get(r.Context(), uid, chatID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load chat")
		}
		return
	}

	userMsg, err := s.chats.AddMessage(r.Context(), uid, chatID, chat.RoleUser, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	resp := chatSendResponse{UserMessage: userMsg}

	reply, err := s.agent.Ask(r.Context(), c.SessionID, req.Content)
	if err != nil {
		if errors.Is(err, agent.ErrDisabled) {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		s.logger.Error().Err(err).Str("chat_id", chatID).Msg("agent request failed")
		writeError(w, http.StatusBadGateway, fmt.Sprintf("agent request failed: %v", err))
		return
	}

	assistantMsg, err := s.chats.AddMessage(r.Context(), uid, chatID, chat.RoleAssistant, reply)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store reply")
		return
	}
	resp.AssistantMessage = assistantMsg

	writeJSON(w, http.StatusOK, resp)
}
