package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 430\n"

// Shader stores the GLSL definition of a single function attached to a geometry node.
// The function signature is decided by the attachment kind, see [Signature].
type Shader interface {
	// AppendShaderName appends the name of the GL shader function
	// to the buffer and returns the result. It should be unique to that shader.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the shader function to the
	// buffer and returns the result.
	AppendShaderBody(b []byte) []byte
	// AppendShaderObjects appends helper functions needed to
	// evaluate the shader correctly. See [ShaderObject].
	AppendShaderObjects(objs []ShaderObject) []ShaderObject
}

// Signature is the GLSL signature of a [Shader] function.
type Signature uint8

const (
	// SignatureSDF is a signed distance function: float f(vec3 p).
	SignatureSDF Signature = iota
	// SignatureIDF is an input deformation function: vec3 f(vec3 p).
	SignatureIDF
	// SignatureODF is an output deformation function: float f(float d, vec3 p).
	SignatureODF
)

func (sig Signature) String() string {
	switch sig {
	case SignatureSDF:
		return "sdf"
	case SignatureIDF:
		return "idf"
	case SignatureODF:
		return "odf"
	}
	return "Signature(" + strconv.Itoa(int(sig)) + ")"
}

func (sig Signature) appendPrototype(b []byte) []byte {
	switch sig {
	case SignatureIDF:
		return append(b, "vec3 "...)
	default:
		return append(b, "float "...)
	}
}

func (sig Signature) appendArgs(b []byte) []byte {
	switch sig {
	case SignatureODF:
		return append(b, "(float d, vec3 p){\n"...)
	default:
		return append(b, "(vec3 p){\n"...)
	}
}

// ShaderObject is a helper GLSL function needed to evaluate a [Shader] correctly,
// i.e: a primitive's distance formula shared between shaders.
type ShaderObject struct {
	// NamePtr is a pointer to the name of the function inside of the [Shader].
	NamePtr    []byte
	funcSource []byte
}

// MakeShaderFunction parses a GLSL function definition and returns it as a [ShaderObject].
func MakeShaderFunction(shaderDef []byte) (sf ShaderObject, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexByte(shaderDef, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderObject{}, errors.New("unable to parse function name")
	}
	name := shaderDef[fnNameStart:fnNameEnd]
	name = bytes.TrimSpace(name)
	if len(name) == 0 {
		return ShaderObject{}, errors.New("empty function name")
	}
	sf = ShaderObject{
		NamePtr:    name,
		funcSource: shaderDef,
	}
	return sf, nil
}

func (obj ShaderObject) IsFunction() bool { return len(obj.funcSource) > 0 }

// AppendShaderSource appends the GL code of a single shader to the dst byte buffer using signature sig.
// name and body byte slices pointing to the result buffer are also returned for convenience.
func AppendShaderSource(dst []byte, sig Signature, s Shader) (result, name, body []byte) {
	dst = sig.appendPrototype(dst)
	nameStart := len(dst)
	dst = s.AppendShaderName(dst)
	nameEnd := len(dst)
	dst = sig.appendArgs(dst)
	bodyStart := len(dst)
	dst = s.AppendShaderBody(dst)
	bodyEnd := len(dst)
	dst = append(dst, "\n}\n"...)
	return dst, dst[nameStart:nameEnd], dst[bodyStart:bodyEnd]
}

// AppendCall appends a call to shader s with the given argument list, i.e: "d, p".
func AppendCall(b []byte, s Shader, args string) []byte {
	b = s.AppendShaderName(b)
	b = append(b, '(')
	b = append(b, args...)
	b = append(b, ')')
	return b
}

// functionSet writes shader functions and their helpers once each.
// Same-named functions must have identical bodies.
type functionSet struct {
	// names maps shader names to body hashes for checking duplicates.
	names   map[uint64]uint64
	scratch []byte
	objs    []ShaderObject
}

func (fs *functionSet) reset() {
	if fs.names == nil {
		fs.names = make(map[uint64]uint64)
	}
	clear(fs.names)
	fs.scratch = fs.scratch[:0]
	fs.objs = fs.objs[:0]
}

func (fs *functionSet) appendObjects(dst []byte, s Shader) ([]byte, error) {
	fs.objs = s.AppendShaderObjects(fs.objs[:0])
	for _, obj := range fs.objs {
		if !obj.IsFunction() {
			return dst, fmt.Errorf("shader object %q is not a function", obj.NamePtr)
		}
		nameHash := hash(obj.NamePtr, 0)
		bodyHash := hash(obj.funcSource, nameHash)
		got, conflict := fs.names[nameHash]
		if conflict {
			if got == bodyHash {
				continue // Identical helper already written.
			}
			return dst, fmt.Errorf("helper function name conflict %q", obj.NamePtr)
		}
		fs.names[nameHash] = bodyHash
		dst = append(dst, obj.funcSource...)
		dst = append(dst, '\n')
	}
	return dst, nil
}

func (fs *functionSet) appendShader(dst []byte, sig Signature, s Shader) ([]byte, error) {
	var err error
	dst, err = fs.appendObjects(dst, s)
	if err != nil {
		return dst, err
	}
	var name, body []byte
	fs.scratch, name, body = AppendShaderSource(fs.scratch[:0], sig, s)
	if len(name) == 0 {
		return dst, fmt.Errorf("empty %s shader name for %T", sig, s)
	}
	nameHash := hash(name, 0)
	bodyHash := hash(body, nameHash) // Body hash mixes name as well.
	gotBodyHash, nameConflict := fs.names[nameHash]
	if nameConflict {
		if bodyHash == gotBodyHash {
			return dst, nil // Shader already written and is identical, skip.
		}
		return dst, fmt.Errorf("duplicate %T shader name %q w/ distinct body:\n%s", s, name, body)
	}
	fs.names[nameHash] = bodyHash
	dst = append(dst, fs.scratch...)
	return dst, nil
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

func AppendUndefineDecl(b []byte, aliasToUndefine string) []byte {
	b = append(b, "#undef "...)
	b = append(b, aliasToUndefine...)
	b = append(b, '\n')
	return b
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, "=vec3("...)
	arr := v.Array()
	b = AppendFloats(b, ',', '-', '.', arr[:]...)
	b = append(b, ')', ';', '\n')
	return b
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

func AppendIntDecl(b []byte, intVarname string, v int) []byte {
	b = append(b, "int "...)
	b = append(b, intVarname...)
	b = append(b, '=')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, ';', '\n')
	return b
}

// AppendMat4Decl appends a mat4 declaration of a column major 4x4 matrix.
func AppendMat4Decl(b []byte, mat4Varname string, colMajor [16]float32) []byte {
	b = append(b, "mat4 "...)
	b = append(b, mat4Varname...)
	b = append(b, "=mat4("...)
	b = AppendFloats(b, ',', '-', '.', colMajor[:]...)
	b = append(b, ");\n"...)
	return b
}

const decimalDigits = 9

// AppendFloat appends a GLSL float literal. neg and decimal replace the minus sign and
// decimal point so that the result may be used inside identifiers, i.e: 'n' and 'p'.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
