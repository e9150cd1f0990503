package config

// TransportFmt selects what an importer run consumes: a bare scene.json
// document or a full .scenebundle archive with its asset payload.
type TransportFmt int

const (
	TransportFmtSceneJSON TransportFmt = iota
	TransportFmtSceneBundle
)

func (f TransportFmt) String() string {
	if f == TransportFmtSceneBundle {
		return "scene-bundle"
	}
	return "scene-json"
}
