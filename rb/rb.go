// Package rb is the record-of-bytes container: the length-prefixed tag-value
// encoding compiled chip specifications are stored under.
//
// Layout (all multi-byte integers big-endian, varints unsigned LEB128):
//
//	magic[4]        = 'R','B','0','1'
//	version         = u8
//	spec_cid_len    = u8 (= 32)
//	spec_cid        = bytes[32]
//	op_count        = varint(u32)
//	per op:
//	  opcode        = u8 (2..=6)
//	  in_arity      = u8
//	  input_refs    = varint(u32)[in_arity]
//	  out_ref       = varint(u32)
//	  aux_len       = varint(u32)
//	  aux           = bytes[aux_len]
//	output_arity    = u8
//	output_refs     = varint(u32)[output_arity]
//	trailer         = u32 (CRC32C of preceding bytes)
package rb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/danvoulez/rho-circles/cidutil"
)

// Magic identifies RB containers.
var Magic = [4]byte{'R', 'B', '0', '1'}

// Version is the current container version.
const Version = 1

// Base opcodes.
const (
	OpNormalize  byte = 2
	OpValidate   byte = 3
	OpPolicyEval byte = 4
	OpCompile    byte = 5
	OpExec       byte = 6
)

// OpcodeValid reports whether op is one of the five base opcodes.
func OpcodeValid(op byte) bool { return op >= OpNormalize && op <= OpExec }

// Op is one operation in the stream: an opcode, its positional input
// registers, a single output register, and opcode-specific literal bytes.
type Op struct {
	Opcode byte
	Inputs []uint32
	Out    uint32
	Aux    []byte
}

// Program is a decoded RB container.
type Program struct {
	SpecCID cidutil.CID
	Ops     []Op
	Outputs []uint32
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes the program. Encoding is deterministic: equal programs
// produce byte-identical containers.
func (p *Program) Encode() ([]byte, error) {
	if !p.SpecCID.Defined() {
		return nil, newError(KindMalformed, "RHO-RB-010", "program missing spec CID")
	}
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(Version)
	buf.WriteByte(cidutil.Size)
	buf.Write(p.SpecCID.Bytes())

	writeUvarint(&buf, uint64(len(p.Ops)))
	for i, op := range p.Ops {
		if !OpcodeValid(op.Opcode) {
			return nil, newError(KindUnknownOpcode, "RHO-RB-011",
				fmt.Sprintf("op %d has opcode %d outside 2..=6", i, op.Opcode))
		}
		if len(op.Inputs) > 0xff {
			return nil, newError(KindMalformed, "RHO-RB-012",
				fmt.Sprintf("op %d input arity exceeds 255", i))
		}
		buf.WriteByte(op.Opcode)
		buf.WriteByte(byte(len(op.Inputs)))
		for _, ref := range op.Inputs {
			writeUvarint(&buf, uint64(ref))
		}
		writeUvarint(&buf, uint64(op.Out))
		writeUvarint(&buf, uint64(len(op.Aux)))
		buf.Write(op.Aux)
	}

	if len(p.Outputs) > 0xff {
		return nil, newError(KindMalformed, "RHO-RB-013", "output arity exceeds 255")
	}
	buf.WriteByte(byte(len(p.Outputs)))
	for _, ref := range p.Outputs {
		writeUvarint(&buf, uint64(ref))
	}

	sum := crc32.Checksum(buf.Bytes(), castagnoli)
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], sum)
	buf.Write(trailer[:])
	return buf.Bytes(), nil
}

// Decode parses an RB container, verifying magic, version, CRC and opcode
// range. Any deviation is a fatal parse error.
func Decode(b []byte) (*Program, error) {
	if len(b) < len(Magic)+2+cidutil.Size+1+1+4 {
		return nil, newError(KindTruncated, "RHO-RB-001", "container shorter than fixed header")
	}
	if !bytes.Equal(b[:4], Magic[:]) {
		return nil, newError(KindBadMagic, "RHO-RB-002", "bad magic")
	}

	body, trailer := b[:len(b)-4], b[len(b)-4:]
	want := binary.BigEndian.Uint32(trailer)
	if crc32.Checksum(body, castagnoli) != want {
		return nil, newError(KindCrc, "RHO-RB-003", "CRC32C mismatch")
	}

	r := &reader{b: body, pos: 4}
	version, _ := r.u8()
	if version != Version {
		return nil, newError(KindBadVersion, "RHO-RB-004",
			fmt.Sprintf("unknown container version %d", version))
	}
	cidLen, err := r.u8()
	if err != nil || cidLen != cidutil.Size {
		return nil, newError(KindMalformed, "RHO-RB-005", "spec CID length must be 32")
	}
	cidBytes, err := r.take(cidutil.Size)
	if err != nil {
		return nil, err
	}
	specCID, err := cidutil.FromBytes(cidBytes)
	if err != nil {
		return nil, newError(KindMalformed, "RHO-RB-005", "invalid spec CID")
	}

	opCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	ops := make([]Op, 0, opCount)
	for i := uint32(0); i < opCount; i++ {
		opcode, err := r.u8()
		if err != nil {
			return nil, err
		}
		if !OpcodeValid(opcode) {
			return nil, newError(KindUnknownOpcode, "RHO-RB-006",
				fmt.Sprintf("op %d has opcode %d outside 2..=6", i, opcode))
		}
		arity, err := r.u8()
		if err != nil {
			return nil, err
		}
		inputs := make([]uint32, arity)
		for j := range inputs {
			if inputs[j], err = r.uvarint(); err != nil {
				return nil, err
			}
		}
		out, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		auxLen, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		aux, err := r.take(int(auxLen))
		if err != nil {
			return nil, err
		}
		ops = append(ops, Op{Opcode: opcode, Inputs: inputs, Out: out, Aux: aux})
	}

	outArity, err := r.u8()
	if err != nil {
		return nil, err
	}
	outputs := make([]uint32, outArity)
	for i := range outputs {
		if outputs[i], err = r.uvarint(); err != nil {
			return nil, err
		}
	}

	if r.pos != len(r.b) {
		return nil, newError(KindMalformed, "RHO-RB-007", "trailing bytes after output refs")
	}
	return &Program{SpecCID: specCID, Ops: ops, Outputs: outputs}, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

type reader struct {
	b   []byte
	pos int
}

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, newError(KindTruncated, "RHO-RB-001", "unexpected end of container")
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, newError(KindTruncated, "RHO-RB-001", "unexpected end of container")
	}
	out := make([]byte, n)
	copy(out, r.b[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *reader) uvarint() (uint32, error) {
	v, err := binary.ReadUvarint(byteReader{r})
	if err != nil {
		return 0, newError(KindTruncated, "RHO-RB-001", "unexpected end of varint")
	}
	if v > 0xffffffff {
		return 0, newError(KindMalformed, "RHO-RB-008", "varint exceeds u32 range")
	}
	return uint32(v), nil
}

type byteReader struct{ r *reader }

func (br byteReader) ReadByte() (byte, error) {
	if br.r.pos >= len(br.r.b) {
		return 0, io.EOF
	}
	c := br.r.b[br.r.pos]
	br.r.pos++
	return c, nil
}
