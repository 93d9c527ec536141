// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tactica tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tactica/internal/apperr"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/sessionservice"
	"github.com/starford/tactica/internal/timeline"
)

const contractURI = "tactica://annotation-format"

// Server wraps the MCP server with Tactica tools.
type Server struct {
	mcp *server.MCPServer
	svc *sessionservice.Service
}

// New creates a new MCP server with all Tactica tools registered.
func New(svc *sessionservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tactica",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List analysis sessions, most recently updated first."),
	), s.listSessions)

	s.mcp.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Read a session with its clips and annotations as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	), s.getSession)

	s.mcp.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create an analysis session, optionally attaching the match video."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Session name")),
		mcp.WithString("video_file", mcp.Description("Video file name")),
		mcp.WithNumber("duration", mcp.Description("Video duration in seconds")),
	), s.createSession)

	s.mcp.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
	), s.deleteSession)

	s.mcp.AddTool(mcp.NewTool("set_video",
		mcp.WithDescription("Attach a video to a session. Existing clips and annotations are clamped to its duration."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("video_file", mcp.Required(), mcp.Description("Video file name")),
		mcp.WithNumber("duration", mcp.Required(), mcp.Description("Video duration in seconds")),
	), s.setVideo)

	s.mcp.AddTool(mcp.NewTool("mark_clip",
		mcp.WithDescription("Create a clip starting at a video time. The clip spans the default length, clamped to the video end."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("at", mcp.Required(), mcp.Description("Start time in seconds")),
		mcp.WithString("type", mcp.Description("Clip type (default highlight)")),
	), s.markClip)

	s.mcp.AddTool(mcp.NewTool("update_clip",
		mcp.WithDescription("Change a clip. Omitted fields are kept; times are clamped to the video and a clip stays at least the minimum length."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("clip_id", mcp.Required(), mcp.Description("Clip ID")),
		mcp.WithString("patch", mcp.Required(), mcp.Description(`JSON object with any of: {"name","type","description","startTime","endTime"}`)),
	), s.updateClip)

	s.mcp.AddTool(mcp.NewTool("delete_clip",
		mcp.WithDescription("Delete a clip. Its annotations are kept and detached from it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("clip_id", mcp.Required(), mcp.Description("Clip ID")),
	), s.deleteClip)

	s.mcp.AddTool(mcp.NewTool("add_annotation",
		mcp.WithDescription("Add an annotation to a session. The annotation MUST follow the "+
			"annotation format contract; read it first via get_annotation_contract or the "+
			contractURI+" resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("annotation", mcp.Required(), mcp.Description("Annotation JSON object")),
	), s.addAnnotation)

	s.mcp.AddTool(mcp.NewTool("update_annotation",
		mcp.WithDescription("Change an annotation. Omitted fields are kept; times are clamped to the video."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("annotation_id", mcp.Required(), mcp.Description("Annotation ID")),
		mcp.WithString("patch", mcp.Required(), mcp.Description(`JSON object with any annotation field except id, type and keyframes, e.g. {"startTime":4,"text":"press"}`)),
	), s.updateAnnotation)

	s.mcp.AddTool(mcp.NewTool("delete_annotation",
		mcp.WithDescription("Delete an annotation from a session."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("annotation_id", mcp.Required(), mcp.Description("Annotation ID")),
	), s.deleteAnnotation)

	s.mcp.AddTool(mcp.NewTool("record_motion",
		mcp.WithDescription("Animate an annotation: poses are spread evenly between start and end and become keyframes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("annotation_id", mcp.Required(), mcp.Description("Annotation ID")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Time of the first pose in seconds")),
		mcp.WithNumber("end", mcp.Required(), mcp.Description("Time of the last pose in seconds")),
		mcp.WithString("poses", mcp.Required(), mcp.Description(`JSON array of poses: [{"x":0,"y":0,"rotation":0,"scaleX":1,"scaleY":1}]`)),
	), s.recordMotion)

	s.mcp.AddTool(mcp.NewTool("render_frame",
		mcp.WithDescription("Compute what is drawn over the video at a time: position, rotation, scale and opacity per visible annotation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("t", mcp.Required(), mcp.Description("Video time in seconds")),
	), s.renderFrame)

	s.mcp.AddTool(mcp.NewTool("get_annotation_contract",
		mcp.WithDescription("Returns the annotation format contract. "+
			"Call this before adding annotations to ensure correct structure."),
	), s.getAnnotationContract)

	// Resource: annotation format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Annotation Format Contract",
			mcp.WithResourceDescription("JSON format accepted by the add_annotation tool."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListSessions(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no sessions"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%s\t%s\t%d clips\t%d annotations", it.ID, it.Name, it.ClipCount, it.AnnotationCount)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.svc.GetSession(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sess), nil
}

func (s *Server) createSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.svc.CreateSession(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	videoFile := req.GetString("video_file", "")
	duration := req.GetFloat("duration", 0)
	if videoFile != "" || duration > 0 {
		if _, err := s.svc.SetVideo(ctx, sess.ID, videoFile, duration); err != nil {
			return toolError(err), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", sess.ID)), nil
}

func (s *Server) deleteSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteSession(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) setVideo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	videoFile, err := req.RequireString("video_file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration, err := req.RequireFloat("duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.svc.SetVideo(ctx, id, videoFile, duration)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sess.Summary()), nil
}

func (s *Server) markClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	at, err := req.RequireFloat("at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.MarkClip(ctx, id, at, req.GetString("type", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(c), nil
}

type clipPatchArg struct {
	Name        *string  `json:"name"`
	Type        *string  `json:"type"`
	Description *string  `json:"description"`
	StartTime   *float64 `json:"startTime"`
	EndTime     *float64 `json:"endTime"`
}

func (s *Server) updateClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clipID, err := req.RequireString("clip_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var p clipPatchArg
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}
	c, err := s.svc.UpdateClip(ctx, id, clipID, timeline.ClipPatch{
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(c), nil
}

func (s *Server) deleteClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clipID, err := req.RequireString("clip_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteClip(ctx, id, clipID); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", clipID)), nil
}

func (s *Server) addAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("annotation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var a models.Annotation
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid annotation JSON: %v", err)), nil
	}
	created, err := s.svc.AddAnnotation(ctx, id, a)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(created), nil
}

type annotationPatchArg struct {
	ClipID             *string           `json:"clipId"`
	StartTime          *float64          `json:"startTime"`
	EndTime            *float64          `json:"endTime"`
	X                  *float64          `json:"x"`
	Y                  *float64          `json:"y"`
	Radius             *float64          `json:"radius"`
	Points             []float64         `json:"points"`
	Text               *string           `json:"text"`
	FontSize           *float64          `json:"fontSize"`
	Style              *models.Style     `json:"style"`
	Transform          *models.Transform `json:"transform"`
	IsPauseScene       *bool             `json:"isPauseScene"`
	PauseSceneDuration *float64          `json:"pauseSceneDuration"`
}

func (s *Server) updateAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	annotationID, err := req.RequireString("annotation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var p annotationPatchArg
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}
	a, err := s.svc.UpdateAnnotation(ctx, id, annotationID, timeline.AnnotationPatch{
		ClipID:             p.ClipID,
		StartTime:          p.StartTime,
		EndTime:            p.EndTime,
		X:                  p.X,
		Y:                  p.Y,
		Radius:             p.Radius,
		Points:             p.Points,
		Text:               p.Text,
		FontSize:           p.FontSize,
		Style:              p.Style,
		Transform:          p.Transform,
		IsPauseScene:       p.IsPauseScene,
		PauseSceneDuration: p.PauseSceneDuration,
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(a), nil
}

func (s *Server) deleteAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	annotationID, err := req.RequireString("annotation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteAnnotation(ctx, id, annotationID); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", annotationID)), nil
}

type poseArg struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Rotation float64  `json:"rotation"`
	ScaleX   *float64 `json:"scaleX"`
	ScaleY   *float64 `json:"scaleY"`
}

func (s *Server) recordMotion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	annotationID, err := req.RequireString("annotation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireFloat("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireFloat("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if end < start {
		return mcp.NewToolResultError("end must not be before start"), nil
	}
	raw, err := req.RequireString("poses")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var args []poseArg
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid poses JSON: %v", err)), nil
	}
	poses := make([]motion.Pose, len(args))
	for i, p := range args {
		poses[i] = motion.Pose{X: p.X, Y: p.Y, Rotation: p.Rotation, ScaleX: 1, ScaleY: 1}
		if p.ScaleX != nil {
			poses[i].ScaleX = *p.ScaleX
		}
		if p.ScaleY != nil {
			poses[i].ScaleY = *p.ScaleY
		}
	}
	a, err := s.svc.RecordMotion(ctx, id, annotationID, start, end, poses)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded %d keyframes on %s", len(a.Keyframes), a.ID)), nil
}

func (s *Server) renderFrame(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := req.RequireFloat("t")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frame, err := s.svc.Frame(ctx, id, t)
	if err != nil {
		return toolError(err), nil
	}
	if len(frame) == 0 {
		return mcp.NewToolResultText("nothing visible"), nil
	}
	return jsonResult(frame), nil
}

func (s *Server) getAnnotationContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AnnotationFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     AnnotationFormatContract,
		},
	}, nil
}
