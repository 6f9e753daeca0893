package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/roach88/playscript/internal/engine"
)

// Player queues tracks on the user's active device.
type Player struct {
	client *Client
}

var _ engine.Sink = (*Player)(nil)

// NewPlayer creates a Player using c's connection.
func NewPlayer(c *Client) *Player {
	return &Player{client: c}
}

// Enqueue adds a track to the playback queue. It returns an error wrapping
// engine.ErrNoSession when no device is active.
func (p *Player) Enqueue(ctx context.Context, trackID string) error {
	err := p.client.do(ctx, http.MethodPost, "/me/player/queue", url.Values{"uri": {trackURI(trackID)}}, nil)
	return sessionError(err)
}

// StartSession resumes playback on the current device.
func (p *Player) StartSession(ctx context.Context) error {
	return sessionError(p.client.do(ctx, http.MethodPut, "/me/player/play", nil, nil))
}

func sessionError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Reason == reasonNoActiveDevice {
		return fmt.Errorf("%w: %v", engine.ErrNoSession, err)
	}
	return err
}

func trackURI(id string) string {
	if bareID(id) == id {
		return "spotify:track:" + id
	}
	return id
}
