package fanout

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/core/ranking"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
)

type fakeLatest map[string][]events.Event

func (f fakeLatest) Latest(eventKey string) []events.Event { return f[eventKey] }

func rankingsEvent(eventKey, last string) events.Event {
	return events.New(events.EventRankingsUpdated, eventKey, events.RankingsUpdated{
		EventKey:        eventKey,
		Year:            2017,
		LastPlayedMatch: last,
		Ranking:         &ranking.Result{LastPlayedMatch: last, Replays: 10},
	})
}

func dial(t *testing.T, srv *httptest.Server, eventKey string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event=" + eventKey
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	evt, err := UnmarshalEvent(msg)
	require.NoError(t, err)
	return evt
}

func TestProtocolRoundTrip(t *testing.T) {
	in := rankingsEvent("2017casj", "2017casj_qm12")
	data, err := MarshalEvent(in)
	require.NoError(t, err)

	out, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.EventKey, out.EventKey)
	assert.Equal(t, "2017casj_qm12", out.Payload.(events.RankingsUpdated).Ranking.LastPlayedMatch)

	_, err = UnmarshalEvent([]byte(`{"type":"score_change","payload":{}}`))
	assert.Error(t, err)
}

func TestServerRoutesByEventKey(t *testing.T) {
	bus := events.NewBus()
	latest := fakeLatest{
		"2017casj": {rankingsEvent("2017casj", "2017casj_qm1")},
		"2017cada": {rankingsEvent("2017cada", "2017cada_qm1")},
	}
	s := NewServer(bus, latest)
	srv := httptest.NewServer(s.Mux())
	defer srv.Close()

	casj := dial(t, srv, "2017casj")
	cada := dial(t, srv, "2017cada")

	// Both receive their latest snapshot on connect.
	assert.Equal(t, "2017casj_qm1", readEvent(t, casj).Payload.(events.RankingsUpdated).LastPlayedMatch)
	assert.Equal(t, "2017cada_qm1", readEvent(t, cada).Payload.(events.RankingsUpdated).LastPlayedMatch)

	bus.Publish(rankingsEvent("2017casj", "2017casj_qm2"))
	assert.Equal(t, "2017casj_qm2", readEvent(t, casj).Payload.(events.RankingsUpdated).LastPlayedMatch)

	cada.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := cada.ReadMessage()
	assert.Error(t, err, "other events must not be forwarded")
}

func TestServerRequiresEventParam(t *testing.T) {
	s := NewServer(events.NewBus(), nil)
	srv := httptest.NewServer(s.Mux())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestClientRepublishes(t *testing.T) {
	latest := fakeLatest{AllEvents: {rankingsEvent("2017casj", "2017casj_qm7")}}
	s := NewServer(events.NewBus(), latest)
	srv := httptest.NewServer(s.Mux())
	defer srv.Close()

	local := events.NewBus()
	got := make(chan events.Event, 1)
	local.Subscribe(events.EventRankingsUpdated, func(e events.Event) error {
		select {
		case got <- e:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), AllEvents, local)
	go c.ConnectWithRetry(ctx)

	select {
	case e := <-got:
		assert.Equal(t, "2017casj", e.EventKey)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not republish")
	}
}
