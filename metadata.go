// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/luxfi/mediaplayer/parcel"
)

// Metadata keys.
const (
	MetadataAny                   int32 = 0
	MetadataPauseAvailable        int32 = 1
	MetadataSeekBackwardAvailable int32 = 2
	MetadataSeekForwardAvailable  int32 = 3
	MetadataSeekAvailable         int32 = 4
	MetadataTitle                 int32 = 5
	MetadataComment               int32 = 6
	MetadataCopyright             int32 = 7
	MetadataAlbum                 int32 = 8
	MetadataArtist                int32 = 9
	MetadataAuthor                int32 = 10
	MetadataComposer              int32 = 11
	MetadataGenre                 int32 = 12
	MetadataDate                  int32 = 13
	MetadataDuration              int32 = 14
	MetadataCDTrackNum            int32 = 15
	MetadataCDTrackMax            int32 = 16
	MetadataRating                int32 = 17
	MetadataAlbumArt              int32 = 18
	MetadataVideoFrame            int32 = 19
	MetadataBitRate               int32 = 20
	MetadataAudioBitRate          int32 = 21
	MetadataVideoBitRate          int32 = 22
	MetadataAudioSampleRate       int32 = 23
	MetadataVideoFrameRate        int32 = 24
	MetadataMimeType              int32 = 25
	MetadataAudioCodec            int32 = 26
	MetadataVideoCodec            int32 = 27
	MetadataVideoHeight           int32 = 28
	MetadataVideoWidth            int32 = 29
	MetadataNumTracks             int32 = 30
	MetadataDRMCrippled           int32 = 31
)

// MetadataType tags the value of a metadata record.
type MetadataType int32

const (
	MetadataString MetadataType = iota + 1
	MetadataInt32
	MetadataBool
	MetadataInt64
	MetadataFloat64
	MetadataTime
	MetadataBytes
)

// metadataMarker is 'META', written after the total length.
const metadataMarker int32 = 0x4d455441

const (
	metadataHeaderSize = 8
	recordHeaderSize   = 12
)

// MetadataFilter selects which metadata keys a player reports. A key passes
// when the allow set holds it (or MetadataAny) and the block set does not.
type MetadataFilter struct {
	Allow []int32
	Block []int32
}

// MatchAll allows every key.
func MatchAll() MetadataFilter {
	return MetadataFilter{Allow: []int32{MetadataAny}}
}

// BlockAll allows no key.
func BlockAll() MetadataFilter {
	return MetadataFilter{Block: []int32{MetadataAny}}
}

// Allows reports whether key passes the filter.
func (f MetadataFilter) Allows(key int32) bool {
	if slices.Contains(f.Block, MetadataAny) || slices.Contains(f.Block, key) {
		return false
	}
	return slices.Contains(f.Allow, MetadataAny) || slices.Contains(f.Allow, key)
}

// Encode writes the allow set then the block set, each as a count and keys.
func (f MetadataFilter) Encode(p *parcel.Parcel) {
	for _, set := range [][]int32{f.Allow, f.Block} {
		p.WriteInt32(int32(len(set)))
		for _, k := range set {
			p.WriteInt32(k)
		}
	}
}

// ReadMetadataFilter decodes a filter written by Encode.
func ReadMetadataFilter(p *parcel.Parcel) (MetadataFilter, error) {
	var sets [2][]int32
	for i := range sets {
		n := p.ReadInt32()
		if p.Err() == nil && (n < 0 || int(n) > p.DataAvail()/4) {
			return MetadataFilter{}, fmt.Errorf("%w: %d filter keys", BadValue, n)
		}
		for range n {
			sets[i] = append(sets[i], p.ReadInt32())
		}
	}
	if err := p.Err(); err != nil {
		return MetadataFilter{}, fmt.Errorf("%w: %w", NotEnoughData, err)
	}
	return MetadataFilter{Allow: sets[0], Block: sets[1]}, nil
}

// ApplyMetadataFilter sends f to the player through SetMetadataFilter.
func ApplyMetadataFilter(ctx context.Context, p Player, f MetadataFilter) error {
	req := NewRequest()
	f.Encode(req)
	req.SetDataPosition(0)
	return p.SetMetadataFilter(ctx, req)
}

// MetadataRecord is one decoded metadata entry.
type MetadataRecord struct {
	Key   int32
	Type  MetadataType
	Value any
}

// Metadata is a decoded metadata body in wire order.
type Metadata []MetadataRecord

// Get returns the value stored under key.
func (m Metadata) Get(key int32) (any, bool) {
	for _, r := range m {
		if r.Key == key {
			return r.Value, true
		}
	}
	return nil, false
}

// MetadataWriter appends a metadata body to a parcel: a total length, the
// 'META' marker and one record per Add call. Close patches the length.
type MetadataWriter struct {
	p     *parcel.Parcel
	start int
}

func NewMetadataWriter(p *parcel.Parcel) *MetadataWriter {
	w := &MetadataWriter{p: p, start: p.DataPosition()}
	p.WriteInt32(0)
	p.WriteInt32(metadataMarker)
	return w
}

func (w *MetadataWriter) record(key int32, t MetadataType, value func(*parcel.Parcel)) {
	start := w.p.DataPosition()
	w.p.WriteInt32(0)
	w.p.WriteInt32(key)
	w.p.WriteInt32(int32(t))
	value(w.p)
	w.patch(start)
}

// patch writes the size of the span that starts at off.
func (w *MetadataWriter) patch(off int) {
	end := w.p.DataPosition()
	w.p.SetDataPosition(off)
	w.p.WriteInt32(int32(end - off))
	w.p.SetDataPosition(end)
}

func (w *MetadataWriter) AddString(key int32, v string) {
	w.record(key, MetadataString, func(p *parcel.Parcel) { p.WriteString8(v) })
}

func (w *MetadataWriter) AddInt32(key, v int32) {
	w.record(key, MetadataInt32, func(p *parcel.Parcel) { p.WriteInt32(v) })
}

func (w *MetadataWriter) AddBool(key int32, v bool) {
	w.record(key, MetadataBool, func(p *parcel.Parcel) { p.WriteBool(v) })
}

func (w *MetadataWriter) AddInt64(key int32, v int64) {
	w.record(key, MetadataInt64, func(p *parcel.Parcel) { p.WriteInt64(v) })
}

func (w *MetadataWriter) AddFloat64(key int32, v float64) {
	w.record(key, MetadataFloat64, func(p *parcel.Parcel) { p.WriteFloat64(v) })
}

// AddTime stores t as milliseconds since the Unix epoch.
func (w *MetadataWriter) AddTime(key int32, t time.Time) {
	w.record(key, MetadataTime, func(p *parcel.Parcel) { p.WriteInt64(t.UnixMilli()) })
}

func (w *MetadataWriter) AddBytes(key int32, v []byte) {
	w.record(key, MetadataBytes, func(p *parcel.Parcel) { p.WriteByteArray(v) })
}

// Close writes the total length.
func (w *MetadataWriter) Close() {
	w.patch(w.start)
}

// ParseMetadata decodes a metadata body starting at the data position of p.
// Records of unknown type are skipped.
func ParseMetadata(p *parcel.Parcel) (Metadata, error) {
	start := p.DataPosition()
	total := p.ReadInt32()
	marker := p.ReadInt32()
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", NotEnoughData, err)
	}
	if marker != metadataMarker {
		return nil, fmt.Errorf("%w: bad metadata marker %#x", BadValue, uint32(marker))
	}
	end := start + int(total)
	if total < metadataHeaderSize || end > p.Len() {
		return nil, fmt.Errorf("%w: metadata length %d", BadValue, total)
	}

	var md Metadata
	for p.DataPosition() < end {
		recStart := p.DataPosition()
		size := p.ReadInt32()
		key := p.ReadInt32()
		t := MetadataType(p.ReadInt32())
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", NotEnoughData, err)
		}
		if size < recordHeaderSize || recStart+int(size) > end {
			return nil, fmt.Errorf("%w: metadata record size %d", BadValue, size)
		}

		var v any
		switch t {
		case MetadataString:
			v = p.ReadString8()
		case MetadataInt32:
			v = p.ReadInt32()
		case MetadataBool:
			v = p.ReadBool()
		case MetadataInt64:
			v = p.ReadInt64()
		case MetadataFloat64:
			v = p.ReadFloat64()
		case MetadataTime:
			v = time.UnixMilli(p.ReadInt64())
		case MetadataBytes:
			v = p.ReadByteArray()
		default:
			p.SetDataPosition(recStart + int(size))
			continue
		}
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", NotEnoughData, err)
		}
		md = append(md, MetadataRecord{Key: key, Type: t, Value: v})
		p.SetDataPosition(recStart + int(size))
	}
	return md, nil
}
