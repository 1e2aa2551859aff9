package types

// Well-known names for the container shapes the engine understands. Go has no
// collection hierarchy, so the type index maps slices, maps, sets and pointers
// onto these parameterized descriptors.
const (
	BuiltinPackage = "builtin"

	SliceName    = "builtin.slice"
	MapName      = "builtin.map"
	SetName      = "builtin.set"
	PointerName  = "builtin.pointer"
	IterableName = "iter.Seq"
	ObjectName   = "builtin.object"
	AnyName      = "builtin.any"
	BytesName    = "builtin.bytes"
)

var (
	// ObjectType is the effective type reported for map-shaped values
	ObjectType = Class(ObjectName)
	// ArrayType is the effective type reported for collection-shaped values
	ArrayType = ArrayOf(ObjectType, 1)
	// StringType is the effective type reported for string enums
	StringType = Primitive("string")
	// IntegerType is the effective type reported for integer enums
	IntegerType = Primitive("int64")
	// AnyType stands for interface types and unconstrained type parameters
	AnyType = Primitive(AnyName)
)

// SliceOf returns the collection descriptor for []elem.
func SliceOf(elem *Type) *Type { return Parameterized(SliceName, elem) }

// SetOf returns the set descriptor for map[elem]struct{}.
func SetOf(elem *Type) *Type { return Parameterized(SetName, elem) }

// MapOf returns the map descriptor for map[key]value.
func MapOf(key, value *Type) *Type { return Parameterized(MapName, key, value) }

// PointerTo returns the wrapper descriptor for *elem.
func PointerTo(elem *Type) *Type { return Parameterized(PointerName, elem) }
