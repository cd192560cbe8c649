// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simplayer

import (
	"context"
	"fmt"
	"path"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/parcel"
)

// Invoke commands. The request starts with the command; the reply layout
// depends on it.
const (
	// InvokeGetState replies state, position and duration as int32.
	InvokeGetState int32 = 1
	// InvokeEcho replies with the rest of the request.
	InvokeEcho int32 = 2
	// InvokeGetTrackInfo replies a count, then kind, name and charset per
	// track. Audio tracks come first, then timed text.
	InvokeGetTrackInfo int32 = 3
)

// Track kinds reported by InvokeGetTrackInfo.
const (
	TrackAudio     int32 = 1
	TrackTimedText int32 = 2
)

func (p *Player) Invoke(_ context.Context, request, reply *parcel.Parcel) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()

	mediaplayer.SkipInterfaceToken(request)
	cmd := request.ReadInt32()
	if err := request.Err(); err != nil {
		return fmt.Errorf("%w: invoke command: %w", mediaplayer.BadValue, err)
	}
	switch cmd {
	case InvokeGetState:
		reply.WriteInt32(int32(p.state))
		reply.WriteInt32(int32(p.position().Milliseconds()))
		reply.WriteInt32(int32(p.media.Duration.Milliseconds()))
	case InvokeEcho:
		reply.WriteRaw(request.ReadRemaining())
	case InvokeGetTrackInfo:
		reply.WriteInt32(int32(len(p.media.Tracks) + len(p.subs.list)))
		for _, t := range p.media.Tracks {
			reply.WriteInt32(TrackAudio)
			reply.WriteByteArray(t.Name)
			reply.WriteCString(t.Charset)
		}
		for _, s := range p.subs.list {
			reply.WriteInt32(TrackTimedText)
			reply.WriteByteArray(s.Name)
			reply.WriteCString(s.Charset)
		}
	default:
		return fmt.Errorf("%w: invoke command %d", mediaplayer.BadValue, cmd)
	}
	return nil
}

func (p *Player) SetMetadataFilter(_ context.Context, request *parcel.Parcel) error {
	mediaplayer.SkipInterfaceToken(request)
	f, err := mediaplayer.ReadMetadataFilter(request)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
	return nil
}

// GetMetadata writes the source's metadata. updateOnly limits it to keys
// that changed since the previous call; applyFilter drops keys the current
// filter rejects.
func (p *Player) GetMetadata(_ context.Context, updateOnly, applyFilter bool, reply *parcel.Parcel) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if !p.in(StatePrepared, StateStarted, StatePaused, StateStopped, StatePlaybackCompleted) {
		return fmt.Errorf("%w: GetMetadata in state %v", mediaplayer.InvalidOperation, p.state)
	}

	w := mediaplayer.NewMetadataWriter(reply)
	for _, r := range p.metadataRecords() {
		if updateOnly && !p.updated[r.key] {
			continue
		}
		if applyFilter && !p.filter.Allows(r.key) {
			continue
		}
		r.write(w, r.key)
	}
	w.Close()
	clear(p.updated)
	return nil
}

func (p *Player) SetParameter(_ context.Context, key int32, value *parcel.Parcel) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()

	switch key {
	case mediaplayer.KeyTimedTextTrackIndex:
		index := value.ReadInt32()
		if err := value.Err(); err != nil {
			return fmt.Errorf("%w: timed text index: %w", mediaplayer.BadValue, err)
		}
		if index != -1 {
			if err := inRange("timed text track", index, 0, int32(len(p.subs.list))-1); err != nil {
				return err
			}
		}
		p.subs.current = index
	case mediaplayer.KeyTimedTextAddOutOfBandSource:
		uri := value.ReadString8()
		if err := value.Err(); err != nil || uri == "" {
			return fmt.Errorf("%w: timed text source %q", mediaplayer.BadValue, uri)
		}
		p.subs.list = append(p.subs.list, mediaplayer.SubtitleInfo{
			Name:    []byte(path.Base(uri)),
			Charset: p.subs.charset,
			Type:    mediaplayer.SubtitleText,
		})
		p.updated[mediaplayer.MetadataNumTracks] = true
		p.notify(Event{What: EventInfo, Ext1: InfoMetadataUpdate})
	default:
		p.params[key] = value.ReadRemaining()
	}
	return nil
}

// GetParameter answers KeyTimedTextTrackIndex and echoes any other key
// previously set. Unknown keys are NameNotFound.
func (p *Player) GetParameter(_ context.Context, key int32, reply *parcel.Parcel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key == mediaplayer.KeyTimedTextTrackIndex {
		reply.WriteInt32(p.subs.current)
		return nil
	}
	v, ok := p.params[key]
	if !ok {
		return fmt.Errorf("%w: parameter %d", mediaplayer.NameNotFound, key)
	}
	reply.WriteRaw(v)
	return nil
}
