package main

import (
	"io"
	"os"

	"github.com/kylejryan/field-report-bot/internal/schema"
)

func printFields(w io.Writer) error {
	path := schemaPath
	if path == "" && !showDefault {
		path = os.Getenv("SCHEMA_PATH")
	}
	if showDefault {
		path = ""
	}
	s, err := schema.Load(path)
	if err != nil {
		return err
	}
	out, err := s.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
