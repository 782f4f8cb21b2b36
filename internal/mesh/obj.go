package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrSyntax      = errors.New("mesh: obj syntax error")
	ErrVertexIndex = errors.New("mesh: obj face references a missing vertex")
)

// LoadOBJ reads a Wavefront OBJ file from disk.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	m, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithField("path", path).Debugf(
		"parsed %d vertices and %d triangles in %d ms",
		m.VertexCount(), m.TriangleCount(), time.Since(start).Nanoseconds()/1e6,
	)
	return m, nil
}

// ReadOBJ parses the geometry of a Wavefront OBJ stream. Only vertex
// positions and faces are kept; polygons are fan triangulated and every
// "g", "o" or "usemtl" statement opens a new group.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	p := objParser{mesh: &Mesh{Indices: []uint32{}}}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		var err error
		switch tokens[0] {
		case "v":
			err = p.parseVertex(tokens)
		case "f":
			err = p.parseFace(tokens)
		case "g", "o", "usemtl":
			p.openGroup(strings.Join(tokens[1:], " "))
		default:
			// Normals, uvs, materials and smoothing groups carry nothing the
			// hierarchy needs.
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p.closeGroup()
	return p.mesh, nil
}

type objParser struct {
	mesh  *Mesh
	line  int
	group *Group
}

func (p *objParser) errorf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", err, p.line, fmt.Sprintf(format, args...))
}

func (p *objParser) parseVertex(tokens []string) error {
	if len(tokens) < 4 {
		return p.errorf(ErrSyntax, "expected 3 vertex coordinates; got %d", len(tokens)-1)
	}
	for _, tok := range tokens[1:4] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return p.errorf(ErrSyntax, "invalid coordinate %q", tok)
		}
		p.mesh.Positions = append(p.mesh.Positions, v)
	}
	return nil
}

func (p *objParser) parseFace(tokens []string) error {
	if len(tokens) < 4 {
		return p.errorf(ErrSyntax, "face needs at least 3 vertices; got %d", len(tokens)-1)
	}
	verts := make([]uint32, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		v, err := p.vertexIndex(tok)
		if err != nil {
			return err
		}
		verts = append(verts, v)
	}
	for k := 1; k+1 < len(verts); k++ {
		p.mesh.Indices = append(p.mesh.Indices, verts[0], verts[k], verts[k+1])
	}
	if p.group != nil {
		p.group.Count += len(verts) - 2
	}
	return nil
}

// vertexIndex resolves the position part of a "v/vt/vn" reference. Negative
// indices count back from the last vertex read.
func (p *objParser) vertexIndex(tok string) (uint32, error) {
	ref := tok
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		ref = tok[:slash]
	}
	idx, err := strconv.Atoi(ref)
	if err != nil || idx == 0 {
		return 0, p.errorf(ErrSyntax, "invalid vertex reference %q", tok)
	}
	count := p.mesh.VertexCount()
	if idx < 0 {
		idx += count
	} else {
		idx--
	}
	if idx < 0 || idx >= count {
		return 0, p.errorf(ErrVertexIndex, "reference %q with %d vertices", tok, count)
	}
	return uint32(idx), nil
}

func (p *objParser) openGroup(name string) {
	p.closeGroup()
	p.group = &Group{Name: name, Start: p.mesh.TriangleCount()}
}

func (p *objParser) closeGroup() {
	if p.group != nil && p.group.Count > 0 {
		p.mesh.Groups = append(p.mesh.Groups, *p.group)
	}
	p.group = nil
}
