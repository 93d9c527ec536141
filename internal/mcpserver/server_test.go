package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/sessionservice"
	"github.com/starford/tactica/internal/studio"
	"github.com/starford/tactica/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	svc := sessionservice.NewService(db, studio.DefaultSettings(), testutil.Logger(), nil)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are
	// called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_sessions":           srv.listSessions,
		"get_session":             srv.getSession,
		"create_session":          srv.createSession,
		"delete_session":          srv.deleteSession,
		"set_video":               srv.setVideo,
		"mark_clip":               srv.markClip,
		"update_clip":             srv.updateClip,
		"delete_clip":             srv.deleteClip,
		"add_annotation":          srv.addAnnotation,
		"update_annotation":       srv.updateAnnotation,
		"delete_annotation":       srv.deleteAnnotation,
		"record_motion":           srv.recordMotion,
		"render_frame":            srv.renderFrame,
		"get_annotation_contract": srv.getAnnotationContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// createSession creates a session with a 60s video and returns its id.
func createSession(t *testing.T, srv *Server, name string) string {
	t.Helper()
	r := callTool(t, srv, "create_session", map[string]any{
		"name":       name,
		"video_file": "match.mp4",
		"duration":   60.0,
	})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	return strings.TrimPrefix(text, "created: ")
}

func TestCreateAndGetSession(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, "Derby")

	r := callTool(t, srv, "get_session", map[string]any{"id": id})
	var sess models.Session
	if err := json.Unmarshal([]byte(resultText(r)), &sess); err != nil {
		t.Fatalf("get result: %v", err)
	}
	if sess.Name != "Derby" || sess.VideoDuration != 60 {
		t.Errorf("session = %+v", sess)
	}

	r = callTool(t, srv, "list_sessions", map[string]any{})
	if !strings.Contains(resultText(r), id) {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestGetSessionMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_session", map[string]any{"id": "nope"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("missing session result = %q (error %v)", resultText(r), r.IsError)
	}
	r = callTool(t, srv, "get_session", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing id argument")
	}
}

func TestMarkClipAndAnnotate(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, "Final")

	r := callTool(t, srv, "mark_clip", map[string]any{"id": id, "at": 50.0})
	var clip models.Clip
	if err := json.Unmarshal([]byte(resultText(r)), &clip); err != nil {
		t.Fatalf("mark_clip result %q: %v", resultText(r), err)
	}
	if clip.StartTime != 50 || clip.EndTime != 60 {
		t.Errorf("clip = %+v", clip)
	}

	r = callTool(t, srv, "add_annotation", map[string]any{
		"id":         id,
		"annotation": `{"type":"circle","startTime":10,"endTime":20,"x":100,"y":100,"radius":30}`,
	})
	var ann models.Annotation
	if err := json.Unmarshal([]byte(resultText(r)), &ann); err != nil {
		t.Fatalf("add_annotation result %q: %v", resultText(r), err)
	}

	r = callTool(t, srv, "record_motion", map[string]any{
		"id":            id,
		"annotation_id": ann.ID,
		"start":         12.0,
		"end":           14.0,
		"poses":         `[{"x":100,"y":100},{"x":300,"y":100}]`,
	})
	if r.IsError {
		t.Fatalf("record_motion: %s", resultText(r))
	}

	r = callTool(t, srv, "render_frame", map[string]any{"id": id, "t": 14.0})
	var frame []compositor.Descriptor
	if err := json.Unmarshal([]byte(resultText(r)), &frame); err != nil {
		t.Fatalf("render_frame result %q: %v", resultText(r), err)
	}
	if len(frame) != 1 || frame[0].X != 300 || frame[0].Radius != 30 {
		t.Errorf("frame = %+v", frame)
	}

	r = callTool(t, srv, "render_frame", map[string]any{"id": id, "t": 30.0})
	if resultText(r) != "nothing visible" {
		t.Errorf("empty frame = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_annotation", map[string]any{"id": id, "annotation_id": ann.ID})
	if r.IsError {
		t.Errorf("delete_annotation: %s", resultText(r))
	}
}

func TestClipAndAnnotationEdits(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, "Derby")

	var clip models.Clip
	r := callTool(t, srv, "mark_clip", map[string]any{"id": id, "at": 5.0})
	_ = json.Unmarshal([]byte(resultText(r)), &clip)

	r = callTool(t, srv, "update_clip", map[string]any{
		"id": id, "clip_id": clip.ID, "patch": `{"name":"Press","endTime":20}`,
	})
	var updated models.Clip
	if err := json.Unmarshal([]byte(resultText(r)), &updated); err != nil {
		t.Fatalf("update_clip result %q: %v", resultText(r), err)
	}
	if updated.Name != "Press" || updated.StartTime != 5 || updated.EndTime != 20 || updated.Duration != 15 {
		t.Errorf("updated clip = %+v", updated)
	}

	r = callTool(t, srv, "add_annotation", map[string]any{
		"id":         id,
		"annotation": `{"type":"text","clipId":"` + clip.ID + `","startTime":6,"endTime":9,"x":10,"y":10,"text":"run"}`,
	})
	var ann models.Annotation
	_ = json.Unmarshal([]byte(resultText(r)), &ann)

	r = callTool(t, srv, "update_annotation", map[string]any{
		"id": id, "annotation_id": ann.ID, "patch": `{"text":"overlap","endTime":12}`,
	})
	var got models.Annotation
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("update_annotation result %q: %v", resultText(r), err)
	}
	if got.Text != "overlap" || got.StartTime != 6 || got.EndTime != 12 {
		t.Errorf("updated annotation = %+v", got)
	}
	if r := callTool(t, srv, "update_annotation", map[string]any{"id": id, "annotation_id": ann.ID, "patch": "{"}); !r.IsError {
		t.Error("expected error for malformed patch")
	}

	if r := callTool(t, srv, "delete_clip", map[string]any{"id": id, "clip_id": clip.ID}); r.IsError {
		t.Fatalf("delete_clip: %s", resultText(r))
	}
	r = callTool(t, srv, "delete_clip", map[string]any{"id": id, "clip_id": clip.ID})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("second delete_clip = %q", resultText(r))
	}

	var sess models.Session
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "get_session", map[string]any{"id": id}))), &sess)
	if len(sess.Clips) != 0 || len(sess.Annotations) != 1 || sess.Annotations[0].ClipID != "" {
		t.Errorf("session after delete_clip: clips=%+v annotations=%+v", sess.Clips, sess.Annotations)
	}
}

func TestAddAnnotation_Invalid(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, "Final")

	r := callTool(t, srv, "add_annotation", map[string]any{"id": id, "annotation": "{"})
	if !r.IsError {
		t.Error("expected error for malformed JSON")
	}
	r = callTool(t, srv, "add_annotation", map[string]any{"id": id, "annotation": `{"type":"hexagon","startTime":1,"endTime":2}`})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
}

func TestDeleteSession(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, "Old")

	if r := callTool(t, srv, "delete_session", map[string]any{"id": id}); r.IsError {
		t.Fatalf("delete: %s", resultText(r))
	}
	if r := callTool(t, srv, "list_sessions", map[string]any{}); resultText(r) != "no sessions" {
		t.Errorf("list after delete = %q", resultText(r))
	}
}

func TestAnnotationContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_annotation_contract", map[string]any{})
	if !strings.Contains(resultText(r), "pauseSceneDuration") {
		t.Error("contract should document pause scenes")
	}
}
