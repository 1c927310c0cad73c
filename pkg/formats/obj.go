package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
	ErrEmptyOBJ         = errors.New("OBJ file has no faces")
)

// OBJ represents the geometry of a Wavefront OBJ file.
// Polygons are fan-triangulated; texture coordinates, normals, groups
// and materials are ignored.
type OBJ struct {
	Positions [][3]float64
	Faces     [][3]int // zero-based indices into Positions
}

// ParseOBJ parses an OBJ file from raw bytes.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			pos, err := parseOBJVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			obj.Positions = append(obj.Positions, pos)
		case "f":
			tris, err := obj.parseFace(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			obj.Faces = append(obj.Faces, tris...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	if len(obj.Faces) == 0 {
		return nil, ErrEmptyOBJ
	}
	return obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

func parseOBJVertex(fields []string) ([3]float64, error) {
	var pos [3]float64
	if len(fields) < 3 {
		return pos, fmt.Errorf("%w: expected 3 coordinates, got %d", ErrInvalidOBJVertex, len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return pos, fmt.Errorf("%w: %v", ErrInvalidOBJVertex, err)
		}
		pos[i] = f
	}
	return pos, nil
}

// parseFace resolves face indices against the vertices read so far and
// fans the polygon around its first corner.
func (o *OBJ) parseFace(fields []string) ([][3]int, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 corners, got %d", ErrInvalidOBJFace, len(fields))
	}

	corners := make([]int, len(fields))
	for i, field := range fields {
		// v, v/vt, v//vn, v/vt/vn
		ref := field
		if slash := strings.IndexByte(ref, '/'); slash >= 0 {
			ref = ref[:slash]
		}
		idx, err := strconv.Atoi(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOBJFace, field)
		}

		switch {
		case idx > 0:
			idx--
		case idx < 0:
			idx += len(o.Positions)
		default:
			return nil, fmt.Errorf("%w: zero index", ErrInvalidOBJFace)
		}
		if idx < 0 || idx >= len(o.Positions) {
			return nil, fmt.Errorf("%w: index %s out of range (%d vertices)", ErrInvalidOBJFace, ref, len(o.Positions))
		}
		corners[i] = idx
	}

	tris := make([][3]int, 0, len(corners)-2)
	for i := 1; i+1 < len(corners); i++ {
		tris = append(tris, [3]int{corners[0], corners[i], corners[i+1]})
	}
	return tris, nil
}
