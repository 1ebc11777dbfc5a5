package api

import (
	"fmt"
	"reflect"

	"gridpath/internal/sim"

	"github.com/invopop/jsonschema"
)

// BuildSchemas reflects JSON Schemas for the documents the API exchanges,
// keyed by name.
func BuildSchemas() (map[string]*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	docs := []struct {
		key         string
		value       interface{}
		title       string
		description string
	}{
		{"snapshot", sim.Snapshot{}, "Simulation Snapshot", "State published once per tick by GET /api/state and the sim:state WebSocket event."},
		{"grid", GridInfo{}, "Grid Layout", "Response of GET /api/grid."},
		{"cell", CellRequest{}, "Cell Command", "Body of POST /api/obstacle and POST /api/path."},
		{"mode", ModeRequest{}, "Mode Command", "Body of POST /api/mode."},
		{"wsCommand", WSCommand{}, "WebSocket Command", "Message a client may send on /ws."},
		{"event", sim.Event{}, "Event Log Entry", "Element of GET /api/events."},
	}

	out := make(map[string]*jsonschema.Schema, len(docs))
	for _, d := range docs {
		schema := reflector.ReflectFromType(reflect.TypeOf(d.value))
		if schema == nil {
			return nil, fmt.Errorf("schema: failed to reflect %s", d.key)
		}
		schema.Version = jsonschema.Version
		schema.Title = d.title
		schema.Description = d.description
		out[d.key] = schema
	}
	return out, nil
}
