// Package manifest decodes, encodes, compares and validates the project
// manifest in its two on-disk forms: the YAML file people edit and the JSON
// file the host reads. Both decode into the same [Value] tree, whose
// mappings keep their key order so a converted file reads like its source.
//
// A [File] binds a path to a format and performs reads and change-detecting
// writes through the durable writer.
package manifest
