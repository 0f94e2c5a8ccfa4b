package resources

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief No resource type. Used for files the manager does not track. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type, raw bytes. */
	ResourceTypeBinary
	/** @brief SPIR-V shader bytecode resource type. */
	ResourceTypeShaderBytecode
	/** @brief Packed mesh resource type. */
	ResourceTypeMesh
)

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

// Number of float32 values per packed mesh vertex: position (3),
// texture coordinate (2), normal (3).
const VertexFloats = 8

// VertexStride is the byte stride of one packed vertex.
const VertexStride = VertexFloats * 4

/**
 * @brief A mesh loaded from the packed format: interleaved
 * position/texcoord/normal vertex data.
 */
type MeshData struct {
	/** @brief The number of vertices. */
	VertexCount uint32
	/** @brief The interleaved vertex bytes, VertexCount*VertexStride long. */
	Vertices []byte
}
