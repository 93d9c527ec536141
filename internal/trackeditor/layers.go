package trackeditor

import "github.com/starford/tactica/internal/models"

var layerColors = map[models.AnnotationType]string{
	models.AnnotationText:      "#f5f5f5",
	models.AnnotationCircle:    "#ffcc00",
	models.AnnotationSpotlight: "#ff8a00",
	models.AnnotationLine:      "#00c2ff",
	models.AnnotationArrow:     "#4caf50",
	models.AnnotationPolygon:   "#c052ff",
}

// DefaultLayers returns the clip track followed by one track per
// annotation type, all visible and expanded.
func DefaultLayers() []models.Layer {
	layers := []models.Layer{{
		ID:       models.LayerClips,
		Name:     "Clips",
		Type:     models.LayerClips,
		Color:    "#e53935",
		Visible:  true,
		Expanded: true,
	}}
	for _, t := range models.AnnotationTypes {
		name := string(t)
		layers = append(layers, models.Layer{
			ID:       name,
			Name:     titleCase(name),
			Type:     name,
			Color:    layerColors[t],
			Visible:  true,
			Expanded: true,
		})
	}
	return layers
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b) + "s"
}

// Layers returns a copy of the editor's layers in track order.
func (e *Editor) Layers() []models.Layer {
	out := make([]models.Layer, len(e.layers))
	copy(out, e.layers)
	return out
}

// Layer returns the layer with the given id.
func (e *Editor) Layer(id string) (models.Layer, bool) {
	for _, l := range e.layers {
		if l.ID == id {
			return l, true
		}
	}
	return models.Layer{}, false
}

// LayerVisible reports whether items of layer type typ are shown. Unknown
// types are visible.
func (e *Editor) LayerVisible(typ string) bool {
	for _, l := range e.layers {
		if l.Type == typ {
			return l.Visible
		}
	}
	return true
}

// ToggleVisible flips a layer's visibility and returns the new value.
func (e *Editor) ToggleVisible(id string) bool {
	for i := range e.layers {
		if e.layers[i].ID == id {
			e.layers[i].Visible = !e.layers[i].Visible
			return e.layers[i].Visible
		}
	}
	return false
}

// ToggleExpanded flips a layer's expanded flag and returns the new value.
func (e *Editor) ToggleExpanded(id string) bool {
	for i := range e.layers {
		if e.layers[i].ID == id {
			e.layers[i].Expanded = !e.layers[i].Expanded
			return e.layers[i].Expanded
		}
	}
	return false
}
