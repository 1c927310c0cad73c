package formats

import (
	"errors"
	"testing"
)

const cubeOBJ = `# unit cube
o cube
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0 0 1
v 1 0 1
v 1 1 1
v 0 1 1
vn 0 0 -1
f 1 4 3 2
f 5 6 7 8
f 1/1/1 2/2/1 6/3/1 5/4/1
f 2//1 3//1 7//1 6//1
f -5 -1 -2 -6
f 4 1 5 8
`

func TestParseOBJ_Cube(t *testing.T) {
	obj, err := ParseOBJ([]byte(cubeOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}

	if len(obj.Positions) != 8 {
		t.Errorf("expected 8 positions, got %d", len(obj.Positions))
	}
	if len(obj.Faces) != 12 {
		t.Errorf("expected 12 triangles, got %d", len(obj.Faces))
	}

	// First quad fans around its first corner.
	if obj.Faces[0] != [3]int{0, 3, 2} || obj.Faces[1] != [3]int{0, 2, 1} {
		t.Errorf("unexpected fan triangulation: %v %v", obj.Faces[0], obj.Faces[1])
	}

	// Negative indices are relative to the end of the vertex list.
	if obj.Faces[8] != [3]int{3, 7, 6} {
		t.Errorf("expected negative indices to resolve to [3 7 6], got %v", obj.Faces[8])
	}
}

func TestParseOBJ_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "# nothing\n", ErrEmptyOBJ},
		{"short vertex", "v 1 2\n", ErrInvalidOBJVertex},
		{"bad number", "v 1 x 2\n", ErrInvalidOBJVertex},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2\n", ErrInvalidOBJFace},
		{"out of range", "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 4\n", ErrInvalidOBJFace},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 0 1 2\n", ErrInvalidOBJFace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
