package mcpserver

// AnnotationFormatContract describes the annotation JSON accepted by the
// add_annotation tool.
const AnnotationFormatContract = `# Tactica Annotation Format Contract

Annotations are drawn over the match video and are visible between
` + "`" + `startTime` + "`" + ` and ` + "`" + `endTime` + "`" + ` (seconds of video time). They fade in over the
first 0.5s and out over the last 0.5s of that range.

## Structure

` + "```" + `json
{
  "type": "arrow",                    // REQUIRED: text | circle | spotlight | line | arrow | polygon
  "startTime": 12.0,                  // REQUIRED, clamped to [0, video duration]
  "endTime": 17.0,                    // REQUIRED, at least 0.5s after startTime
  "x": 640, "y": 360,                 // anchor on a 1920x1080 canvas
  "radius": 40,                       // circle, spotlight
  "points": [0, 0, 120, -40],         // line, arrow: [x1,y1,x2,y2]; polygon: x,y pairs
  "text": "Press trigger",            // text
  "fontSize": 24,                     // text
  "style": {"stroke": "#ffcc00", "strokeWidth": 3, "fill": "", "opacity": 1},
  "transform": {"rotation": 0, "scaleX": 1, "scaleY": 1},
  "clipId": "",                       // OPTIONAL clip this annotation belongs to
  "isPauseScene": false,              // OPTIONAL: pause playback when reached
  "pauseSceneDuration": 3             // OPTIONAL seconds to hold a pause scene
}
` + "```" + `

## Rules

1. **Coordinates** are relative to the anchor ` + "`" + `x` + "`" + `/` + "`" + `y` + "`" + `; ` + "`" + `points` + "`" + ` are offsets.
2. **Times are clamped, not rejected.** A range past the video end is pulled inside it.
3. **Unknown types are rejected.**
4. **Omit ` + "`" + `id` + "`" + `**; the server assigns one and returns it.
5. **Motion** is added afterwards with ` + "`" + `record_motion` + "`" + `: a list of poses spread
   evenly between a start and end time. Playback eases between consecutive poses.

## Example

Arrow pointing at the far post for five seconds from 1:12:

` + "```" + `json
{"type": "arrow", "startTime": 72, "endTime": 77, "x": 900, "y": 500,
 "points": [0, 0, 180, -60], "style": {"stroke": "#4caf50", "strokeWidth": 4}}
` + "```" + `
`
