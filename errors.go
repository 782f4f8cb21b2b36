package meshbvh

import "errors"

var (
	ErrMissingPositions = errors.New("meshbvh: geometry has no position data")
	ErrNoPrimitives     = errors.New("meshbvh: geometry has no triangles")
	ErrIndexLength      = errors.New("meshbvh: index buffer length is not a multiple of 3")
	ErrIndexOutOfRange  = errors.New("meshbvh: index buffer references a missing vertex")
	ErrPositionLength   = errors.New("meshbvh: vertex count is not a multiple of 3")
	ErrAttributeLength  = errors.New("meshbvh: attribute length does not match vertex count")
	ErrInvalidGroups    = errors.New("meshbvh: invalid group ranges")
	ErrIndexRequired    = errors.New("meshbvh: snapshot requires an index buffer")
	ErrInvalidOptions   = errors.New("meshbvh: invalid build options")
	ErrSnapshotVersion  = errors.New("meshbvh: unsupported snapshot version")
	ErrSnapshotCorrupt  = errors.New("meshbvh: corrupt snapshot")
	ErrNilSnapshot      = errors.New("meshbvh: nil snapshot")
	ErrTreeInvariant    = errors.New("meshbvh: tree invariant violated")
)
