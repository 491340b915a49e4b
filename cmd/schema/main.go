package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/snakes/model"
)

// wireShapes lists every line that may follow the handshake, server records first.
var wireShapes = []interface{}{
	new(model.Wall),
	new(model.Snake),
	new(model.Powerup),
	new(model.MoveCommand),
}

func main() {
	out := flag.String("out", "", "path to write the JSON schema, stdout when empty")
	flag.Parse()

	schema := buildSchema()
	if *out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(schema); err != nil {
			log.Fatalf("schema: %v", err)
		}
		return
	}
	if err := writeSchema(*out, schema); err != nil {
		log.Fatalf("schema: %v", err)
	}
	log.Infof("schema written to %s", *out)
}

// buildSchema makes one line validate against exactly one branch: each branch is a record
// shape referencing the shared $defs of the root.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Snake arena wire records",
		Description: "One JSON object per line: walls, snakes and powerups from the server, move commands from the client",
		Definitions: jsonschema.Definitions{},
	}
	for _, shape := range wireShapes {
		reflected := reflector.Reflect(shape)
		for name, def := range reflected.Definitions {
			root.Definitions[name] = def
		}
		root.OneOf = append(root.OneOf, &jsonschema.Schema{Ref: reflected.Ref})
	}
	return root
}

// writeSchema replaces outPath only once the whole document is on disk.
func writeSchema(outPath string, schema *jsonschema.Schema) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(outPath)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outPath)
}
