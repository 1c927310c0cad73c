// Package formats provides parsers for the mesh and environment map file
// formats the generator reads without a third-party decoder.
package formats
