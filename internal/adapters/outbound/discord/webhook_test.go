package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
)

func rankings() events.RankingsUpdated {
	return events.RankingsUpdated{
		EventKey:        "2017casj",
		LastPlayedMatch: "2017casj_qm40",
		Ranking: &ranking.Result{
			Replays: 1000,
			Teams: []ranking.TeamProjection{
				{Team: "frc254", MeanRank: 1.2, MinRank: 1, MaxRank: 3, MeanRP: 28.5},
				{Team: "frc971", MeanRank: 2.4, MinRank: 1, MaxRank: 5, MeanRP: 26},
			},
		},
	}
}

func TestRankingsEmbed(t *testing.T) {
	e := RankingsEmbed(rankings())
	assert.Equal(t, "Projected rankings: 2017casj", e.Title)
	assert.Equal(t, "Through 2017casj_qm40 (1000 replays)", e.Description)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "1. 254  mean rank 1.2 (1-3), 28.5 RP\n2. 971  mean rank 2.4 (1-5), 26.0 RP\n", e.Fields[0].Value)

	empty := RankingsEmbed(events.RankingsUpdated{EventKey: "2017casj"})
	assert.Equal(t, "Through no matches played", empty.Description)
	assert.Empty(t, empty.Fields)
}

func TestRankingsUpdatePosts(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	require.NoError(t, n.RankingsUpdate(context.Background(), rankings()))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, ColorBlue, got.Embeds[0].Color)
	assert.NotEmpty(t, got.Embeds[0].Timestamp)
}

func TestSendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	assert.Error(t, NewNotifier(srv.URL).SendText(context.Background(), "hi"))

	assert.NoError(t, NewNotifier("").SendText(context.Background(), "disabled"))
}
