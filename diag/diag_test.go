package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

func newServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	r := registry.New()
	require.NoError(t, r.RegisterActivityFunc("send", func(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
		return map[string]any{"msgId": "m-" + ex.Event.ID}, nil
	}))

	e := engine.New(r, engine.WithClock(clock.NewMock()))
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})

	require.NoError(t, e.Deploy(context.Background(), &workflow.Definition{
		ID: "survey",
		Activities: []workflow.Activity{
			{ID: "sendForm", Kind: "send"},
			{ID: "reply", Wait: &workflow.Wait{FormID: "sendForm", Exclusive: true}},
		},
		Transitions: []workflow.Transition{
			{From: "sendForm", To: "reply"},
		},
		Triggers: []workflow.Trigger{
			{Event: event.KindMessageReceived, Key: "/survey", Activity: "sendForm"},
		},
	}))

	srv := httptest.NewServer(NewServeMux(e, nil))
	t.Cleanup(srv.Close)

	return srv, e
}

func start(t *testing.T, e *engine.Engine, id string) {
	t.Helper()

	require.NoError(t, e.OnEvent(context.Background(), &event.Event{
		ID:   id,
		Type: "MESSAGESENT",
		Message: &event.Message{
			MessageID: "msg-" + id,
			Text:      "/survey",
			Stream:    &event.Stream{StreamID: "stream"},
		},
	}))
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func Test_Diag_ListInstances(t *testing.T) {
	srv, e := newServer(t)

	start(t, e, "e1")
	start(t, e, "e2")
	start(t, e, "e3")

	resp := do(t, http.MethodGet, srv.URL+"/api/workflows/survey/instances?count=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list InstanceList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 3, list.Total)
	require.Len(t, list.Instances, 2)
	require.Equal(t, core.InstanceStatusRunning, list.Instances[0].Status)
	require.Equal(t, 1, list.Instances[0].OpenWaits)

	resp = do(t, http.MethodGet, srv.URL+"/api/workflows/survey/instances?count=x")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/workflows/unknown/instances")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 0, list.Total)
}

func Test_Diag_GetAndCancel(t *testing.T) {
	srv, e := newServer(t)

	start(t, e, "e1")
	instanceID := e.Instances(context.Background(), "survey")[0].InstanceID

	resp := do(t, http.MethodGet, srv.URL+"/api/instances/"+instanceID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s core.InstanceSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	require.Equal(t, instanceID, s.InstanceID)
	require.Equal(t, core.ActivityStateWaiting, s.State("reply"))

	resp = do(t, http.MethodDelete, srv.URL+"/api/instances/"+instanceID)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/instances/"+instanceID)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/instances/unknown")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
