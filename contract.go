// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"fmt"
	"slices"

	"github.com/luxfi/mediaplayer/parcel"
)

// Descriptor is the interface token written at the front of every request.
const Descriptor = "android.media.IMediaPlayer"

// Code identifies an operation on the wire.
type Code uint32

// FirstCall is the first code of the baseline block.
const FirstCall Code = 1

// Baseline operations. The numbering is part of the wire contract.
const (
	OpDisconnect Code = FirstCall + iota
	OpSetDataSourceURL
	OpSetDataSourceFD
	OpSetDataSourceStream
	OpSetVideoSurfaceTexture
	OpPrepareAsync
	OpStart
	OpStop
	OpIsPlaying
	OpPause
	OpSeekTo
	OpGetCurrentPosition
	OpGetDuration
	OpReset
	OpSetAudioStreamType
	OpSetLooping
	OpSetVolume
	OpInvoke
	OpSetMetadataFilter
	OpGetMetadata
	OpSetAuxEffectSendLevel
	OpAttachAuxEffect
	OpSetParameter
	OpGetParameter
)

// Vendor extension operations, numbered directly after the baseline block.
const (
	OpGetSubCount Code = OpGetParameter + 1 + iota
	OpGetSubList
	OpGetCurSub
	OpSwitchSub
	OpSetSubGate
	OpGetSubGate
	OpSetSubColor
	OpGetSubColor
	OpSetSubFrameColor
	OpGetSubFrameColor
	OpSetSubFontSize
	OpGetSubFontSize
	OpSetSubCharset
	OpGetSubCharset
	OpSetSubPosition
	OpGetSubPosition
	OpSetSubDelay
	OpGetSubDelay
	OpGetTrackCount
	OpGetTrackList
	OpGetCurTrack
	OpSwitchTrack
	OpSetInputDimensionType
	OpGetInputDimensionType
	OpSetOutputDimensionType
	OpGetOutputDimensionType
	OpSetAnaglyphType
	OpGetAnaglyphType
	OpGetVideoEncode
	OpGetVideoFrameRate
	OpGetAudioEncode
	OpGetAudioBitRate
	OpGetAudioSampleRate
	OpEnableScaleMode
)

// IsExtension reports whether c belongs to the vendor extension block.
func (c Code) IsExtension() bool {
	return c >= OpGetSubCount && c <= OpEnableScaleMode
}

func (c Code) String() string {
	if op, ok := operations[c]; ok {
		return op.Name
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}

// FieldType is the encoding of one request or reply field.
type FieldType uint8

const (
	FieldInt32 FieldType = iota + 1
	FieldInt64
	FieldFloat32
	FieldBool
	FieldCString
	FieldString8
	FieldBlob
	FieldPairs
	FieldHandle
	FieldFileDescriptor
	// FieldRaw is an opaque tail whose layout is owned by the caller and the
	// implementation.
	FieldRaw
	// FieldRecords is a count followed by that many list records, or a
	// negative status in place of the count.
	FieldRecords
)

var fieldNames = [...]string{
	FieldInt32:          "int32",
	FieldInt64:          "int64",
	FieldFloat32:        "float32",
	FieldBool:           "bool",
	FieldCString:        "cstring",
	FieldString8:        "string8",
	FieldBlob:           "blob",
	FieldPairs:          "pairs",
	FieldHandle:         "handle",
	FieldFileDescriptor: "fd",
	FieldRaw:            "raw",
	FieldRecords:        "records",
}

func (f FieldType) String() string {
	if int(f) < len(fieldNames) && fieldNames[f] != "" {
		return fieldNames[f]
	}
	return fmt.Sprintf("FieldType(%d)", uint8(f))
}

// Operation describes the wire shape of one operation. Request fields follow
// the interface token, which every request except pass-through ones carries.
type Operation struct {
	Code      Code
	Name      string
	Request   []FieldType
	Reply     []FieldType
	Extension bool
	// PassThrough requests are framed by the caller and forwarded verbatim.
	PassThrough bool
}

func op(code Code, name string, req, reply []FieldType) Operation {
	return Operation{Code: code, Name: name, Request: req, Reply: reply, Extension: code.IsExtension()}
}

func fields(f ...FieldType) []FieldType { return f }

var (
	statusOnly = fields(FieldInt32)
	valueOnly  = fields(FieldInt32)
	valueFirst = fields(FieldInt32, FieldInt32)
	statusText = fields(FieldInt32, FieldCString)
	records    = fields(FieldRecords)
)

var operations = func() map[Code]Operation {
	ops := []Operation{
		op(OpDisconnect, "Disconnect", nil, nil),
		op(OpSetDataSourceURL, "SetDataSourceURL", fields(FieldCString, FieldPairs), statusOnly),
		op(OpSetDataSourceFD, "SetDataSourceFD", fields(FieldFileDescriptor, FieldInt64, FieldInt64), statusOnly),
		op(OpSetDataSourceStream, "SetDataSourceStream", fields(FieldHandle), statusOnly),
		op(OpSetVideoSurfaceTexture, "SetVideoSurfaceTexture", fields(FieldHandle), statusOnly),
		op(OpPrepareAsync, "PrepareAsync", nil, statusOnly),
		op(OpStart, "Start", nil, statusOnly),
		op(OpStop, "Stop", nil, statusOnly),
		op(OpIsPlaying, "IsPlaying", nil, fields(FieldBool, FieldInt32)),
		op(OpPause, "Pause", nil, statusOnly),
		op(OpSeekTo, "SeekTo", fields(FieldInt32), statusOnly),
		op(OpGetCurrentPosition, "GetCurrentPosition", nil, valueFirst),
		op(OpGetDuration, "GetDuration", nil, valueFirst),
		op(OpReset, "Reset", nil, statusOnly),
		op(OpSetAudioStreamType, "SetAudioStreamType", fields(FieldInt32), statusOnly),
		op(OpSetLooping, "SetLooping", fields(FieldBool), statusOnly),
		op(OpSetVolume, "SetVolume", fields(FieldFloat32, FieldFloat32), statusOnly),
		{Code: OpInvoke, Name: "Invoke", Request: fields(FieldRaw), Reply: fields(FieldRaw), PassThrough: true},
		{Code: OpSetMetadataFilter, Name: "SetMetadataFilter", Request: fields(FieldRaw), Reply: statusOnly, PassThrough: true},
		op(OpGetMetadata, "GetMetadata", fields(FieldBool, FieldBool), fields(FieldInt32, FieldRaw)),
		op(OpSetAuxEffectSendLevel, "SetAuxEffectSendLevel", fields(FieldFloat32), statusOnly),
		op(OpAttachAuxEffect, "AttachAuxEffect", fields(FieldInt32), statusOnly),
		op(OpSetParameter, "SetParameter", fields(FieldInt32, FieldRaw), statusOnly),
		op(OpGetParameter, "GetParameter", fields(FieldInt32), fields(FieldRaw)),

		op(OpGetSubCount, "GetSubCount", nil, valueOnly),
		op(OpGetSubList, "GetSubList", fields(FieldInt32), records),
		op(OpGetCurSub, "GetCurSub", nil, valueOnly),
		op(OpSwitchSub, "SwitchSub", fields(FieldInt32), statusOnly),
		op(OpSetSubGate, "SetSubGate", fields(FieldBool), statusOnly),
		op(OpGetSubGate, "GetSubGate", nil, fields(FieldBool)),
		op(OpSetSubColor, "SetSubColor", fields(FieldInt32), statusOnly),
		op(OpGetSubColor, "GetSubColor", nil, valueOnly),
		op(OpSetSubFrameColor, "SetSubFrameColor", fields(FieldInt32), statusOnly),
		op(OpGetSubFrameColor, "GetSubFrameColor", nil, valueOnly),
		op(OpSetSubFontSize, "SetSubFontSize", fields(FieldInt32), statusOnly),
		op(OpGetSubFontSize, "GetSubFontSize", nil, valueOnly),
		op(OpSetSubCharset, "SetSubCharset", fields(FieldCString), statusOnly),
		op(OpGetSubCharset, "GetSubCharset", nil, statusText),
		op(OpSetSubPosition, "SetSubPosition", fields(FieldInt32), statusOnly),
		op(OpGetSubPosition, "GetSubPosition", nil, valueOnly),
		op(OpSetSubDelay, "SetSubDelay", fields(FieldInt32), statusOnly),
		op(OpGetSubDelay, "GetSubDelay", nil, valueOnly),
		op(OpGetTrackCount, "GetTrackCount", nil, valueOnly),
		op(OpGetTrackList, "GetTrackList", fields(FieldInt32), records),
		op(OpGetCurTrack, "GetCurTrack", nil, valueOnly),
		op(OpSwitchTrack, "SwitchTrack", fields(FieldInt32), statusOnly),
		op(OpSetInputDimensionType, "SetInputDimensionType", fields(FieldInt32), statusOnly),
		op(OpGetInputDimensionType, "GetInputDimensionType", nil, valueOnly),
		op(OpSetOutputDimensionType, "SetOutputDimensionType", fields(FieldInt32), statusOnly),
		op(OpGetOutputDimensionType, "GetOutputDimensionType", nil, valueOnly),
		op(OpSetAnaglyphType, "SetAnaglyphType", fields(FieldInt32), statusOnly),
		op(OpGetAnaglyphType, "GetAnaglyphType", nil, valueOnly),
		op(OpGetVideoEncode, "GetVideoEncode", nil, statusText),
		op(OpGetVideoFrameRate, "GetVideoFrameRate", nil, valueOnly),
		op(OpGetAudioEncode, "GetAudioEncode", nil, statusText),
		op(OpGetAudioBitRate, "GetAudioBitRate", nil, valueOnly),
		op(OpGetAudioSampleRate, "GetAudioSampleRate", nil, valueOnly),
		op(OpEnableScaleMode, "EnableScaleMode", fields(FieldBool, FieldInt32, FieldInt32), statusOnly),
	}
	m := make(map[Code]Operation, len(ops))
	for _, o := range ops {
		if _, dup := m[o.Code]; dup {
			panic(fmt.Sprintf("mediaplayer: duplicate operation code %d", o.Code))
		}
		m[o.Code] = o
	}
	return m
}()

// Lookup returns the contract entry for code.
func Lookup(code Code) (Operation, bool) {
	o, ok := operations[code]
	return o, ok
}

// Operations returns every operation ordered by code.
func Operations() []Operation {
	out := make([]Operation, 0, len(operations))
	for _, o := range operations {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Operation) int { return int(a.Code) - int(b.Code) })
	return out
}

// checkRequest walks the declared request fields of o over a private view of
// p starting at its data position. It fails when the request is too short or
// a field cannot be decoded as its declared type. p is not consumed.
func (o Operation) checkRequest(p *parcel.Parcel) error {
	view := parcel.From(p.Bytes())
	view.SetDataPosition(p.DataPosition())
	for _, f := range o.Request {
		switch f {
		case FieldInt32, FieldBool:
			view.ReadInt32()
		case FieldInt64:
			view.ReadInt64()
		case FieldFloat32:
			view.ReadFloat32()
		case FieldCString:
			view.ReadCString()
		case FieldString8:
			view.ReadString8()
		case FieldBlob:
			view.ReadByteArray()
		case FieldPairs:
			view.ReadPairs()
		case FieldHandle:
			view.ReadHandle()
		case FieldFileDescriptor:
			view.ReadFileDescriptor()
		case FieldRaw:
			return view.Err()
		default:
			return fmt.Errorf("mediaplayer: %s has no request decoder for %s", o.Name, f)
		}
	}
	return view.Err()
}
