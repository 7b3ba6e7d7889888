package nhl

import (
	"context"
	"fmt"
	"strings"
)

// API is the read surface the rest of the daemon depends on.
type API interface {
	GameLanding(ctx context.Context, gameID int64) (*Landing, error)
	PlayByPlay(ctx context.Context, gameID int64) (*PlayByPlay, error)
	Boxscore(ctx context.Context, gameID int64) (*Boxscore, error)
	ShiftChart(ctx context.Context, gameID int64) (*ShiftChart, error)
	ClubScheduleWeek(ctx context.Context, teamAbbrev string) (*ClubSchedule, error)
	InvalidateGame(gameID int64)
	InvalidateSchedule(teamAbbrev string)
}

// Fetcher is a stateless cache-through wrapper over Client.
type Fetcher struct {
	client *Client
	cache  *Cache
}

func NewFetcher(client *Client, cache *Cache) *Fetcher {
	return &Fetcher{client: client, cache: cache}
}

func (f *Fetcher) InvalidateGame(gameID int64) { f.cache.InvalidateGame(gameID) }

// InvalidateSchedule drops the cached week schedule for one team so the next
// read observes live-state transitions immediately.
func (f *Fetcher) InvalidateSchedule(teamAbbrev string) {
	f.cache.Invalidate("schedule:" + strings.ToUpper(teamAbbrev))
}

func (f *Fetcher) GameLanding(ctx context.Context, gameID int64) (*Landing, error) {
	key := fmt.Sprintf("landing:%d", gameID)
	if v, ok := f.cache.Get(key); ok {
		return v.(*Landing), nil
	}
	v, err := f.client.GameLanding(ctx, gameID)
	if err != nil {
		return nil, err
	}
	f.cache.Put(key, TierLive, v)
	return v, nil
}

func (f *Fetcher) PlayByPlay(ctx context.Context, gameID int64) (*PlayByPlay, error) {
	key := fmt.Sprintf("pbp:%d", gameID)
	if v, ok := f.cache.Get(key); ok {
		return v.(*PlayByPlay), nil
	}
	v, err := f.client.PlayByPlay(ctx, gameID)
	if err != nil {
		return nil, err
	}
	f.cache.Put(key, TierLive, v)
	return v, nil
}

func (f *Fetcher) Boxscore(ctx context.Context, gameID int64) (*Boxscore, error) {
	key := fmt.Sprintf("box:%d", gameID)
	if v, ok := f.cache.Get(key); ok {
		return v.(*Boxscore), nil
	}
	v, err := f.client.Boxscore(ctx, gameID)
	if err != nil {
		return nil, err
	}
	f.cache.Put(key, TierLive, v)
	return v, nil
}

func (f *Fetcher) ShiftChart(ctx context.Context, gameID int64) (*ShiftChart, error) {
	key := fmt.Sprintf("shifts:%d", gameID)
	if v, ok := f.cache.Get(key); ok {
		return v.(*ShiftChart), nil
	}
	v, err := f.client.ShiftChart(ctx, gameID)
	if err != nil {
		return nil, err
	}
	f.cache.Put(key, TierLive, v)
	return v, nil
}

func (f *Fetcher) ClubScheduleWeek(ctx context.Context, teamAbbrev string) (*ClubSchedule, error) {
	key := "schedule:" + strings.ToUpper(teamAbbrev)
	if v, ok := f.cache.Get(key); ok {
		return v.(*ClubSchedule), nil
	}
	v, err := f.client.ClubScheduleWeek(ctx, teamAbbrev)
	if err != nil {
		return nil, err
	}
	f.cache.Put(key, TierStatic, v)
	return v, nil
}
