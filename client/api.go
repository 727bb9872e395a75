package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pthm-cable/swarm/session"
)

// API is the thin HTTP client for session bootstrap: joining, fetching
// questions and listing participants.
type API struct {
	base string
	http *http.Client
}

// NewAPI points an API client at the platform server.
func NewAPI(host string, port int) *API {
	return &API{
		base: fmt.Sprintf("http://%s:%d/api", host, port),
		http: &http.Client{},
	}
}

// Join registers a participant name with the session and returns the id the
// server assigned.
func (a *API) Join(sessionID int, name string) (int, error) {
	body, err := a.post(fmt.Sprintf("session/%d/participants", sessionID), map[string]any{
		"user": name,
	})
	if err != nil {
		return 0, err
	}

	switch string(body) {
	case "Participant already joined session":
		return 0, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	case "Session not found":
		return 0, fmt.Errorf("%w: id %d", ErrSessionNotFound, sessionID)
	}

	var resp struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parsing join response: %w", err)
	}
	return resp.ID, nil
}

// Question fetches a question and its image.
func (a *API) Question(collectionID string, questionID int) (*session.Question, error) {
	body, err := a.get(fmt.Sprintf("question/%s/%d", collectionID, questionID))
	if err != nil {
		return nil, err
	}

	// Older server revisions call the prompt field "question".
	var resp struct {
		Prompt   string   `json:"prompt"`
		Question string   `json:"question"`
		Answers  []string `json:"answers"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing question response: %w", err)
	}
	prompt := resp.Prompt
	if prompt == "" {
		prompt = resp.Question
	}

	image, err := a.get(fmt.Sprintf("question/%s/%d/image", collectionID, questionID))
	if err != nil {
		return nil, err
	}

	return &session.Question{
		ID:           questionID,
		CollectionID: collectionID,
		Prompt:       prompt,
		Answers:      resp.Answers,
		Image:        image,
	}, nil
}

// AllParticipants lists every participant currently in the session.
func (a *API) AllParticipants(sessionID int) ([]session.Participant, error) {
	body, err := a.post(fmt.Sprintf("session/%d/allParticipants", sessionID), map[string]any{
		"user": "admin",
		"pass": "admin",
	})
	if err != nil {
		return nil, err
	}

	var resp []struct {
		Username string `json:"username"`
		ID       int    `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing participants response: %w", err)
	}

	participants := make([]session.Participant, len(resp))
	for i, u := range resp {
		participants[i] = session.Participant{ID: u.ID, Name: u.Username}
	}
	return participants, nil
}

// SetOffline tells the server the participant left the session.
func (a *API) SetOffline(sessionID, clientID int) error {
	_, err := a.post(fmt.Sprintf("session/%d/participants/%d", sessionID, clientID), nil)
	return err
}

func (a *API) get(endpoint string) ([]byte, error) {
	uri := a.base + "/" + endpoint
	slog.Debug("sending GET request", "uri", uri)

	resp, err := a.http.Get(uri)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", endpoint, err)
	}
	return body, nil
}

func (a *API) post(endpoint string, payload any) ([]byte, error) {
	uri := a.base + "/" + endpoint
	slog.Debug("sending POST request", "uri", uri)

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("POST %s: encoding payload: %w", endpoint, err)
		}
	}

	resp, err := a.http.Post(uri, "application/json", &buf)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("POST %s: reading body: %w", endpoint, err)
	}
	return body, nil
}
