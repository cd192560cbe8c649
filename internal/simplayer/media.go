// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simplayer

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/luxfi/mediaplayer"
)

// DefaultDuration is the length DefaultProbe gives on-demand media.
const DefaultDuration = 3 * time.Minute

// Media is what a data source resolves to.
type Media struct {
	Title    string
	MimeType string
	Duration time.Duration

	Width      int32
	Height     int32
	VideoCodec string
	FrameRate  int32

	AudioCodec   string
	AudioBitRate int32
	SampleRate   int32

	// Live media has no duration and cannot seek.
	Live bool

	Subtitles []mediaplayer.SubtitleInfo
	Tracks    []mediaplayer.TrackInfo

	// PrepareError makes PrepareAsync end in the error state.
	PrepareError error
}

// HasVideo reports whether the media carries a picture.
func (m Media) HasVideo() bool {
	return m.Width > 0 && m.Height > 0
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".ts":   "video/mp2t",
	".3gp":  "video/3gpp",
	".avi":  "video/x-msvideo",
}

// DefaultProbe guesses media properties from a URI. Audio extensions give
// audio-only media, rtsp URIs give live video and everything else gives a
// 720p clip of DefaultDuration.
func DefaultProbe(uri string) (Media, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Media{}, fmt.Errorf("%w: %w", mediaplayer.BadValue, err)
	}
	switch u.Scheme {
	case "", "file", "fd", "http", "https", "rtsp":
	default:
		return Media{}, fmt.Errorf("%w: unsupported scheme %q", mediaplayer.BadValue, u.Scheme)
	}

	name := path.Base(u.Path)
	if u.Scheme == "fd" {
		name = "fd" + u.Host
	}
	ext := strings.ToLower(path.Ext(name))
	m := Media{
		Title:        strings.TrimSuffix(name, path.Ext(name)),
		Duration:     DefaultDuration,
		AudioCodec:   "aac",
		AudioBitRate: 128000,
		SampleRate:   44100,
		Tracks: []mediaplayer.TrackInfo{
			{Name: []byte("Main"), Charset: mediaplayer.CharsetUTF8},
		},
	}
	if mime, ok := audioTypes[ext]; ok {
		m.MimeType = mime
		return m, nil
	}

	m.MimeType = "video/mp4"
	if mime, ok := videoTypes[ext]; ok {
		m.MimeType = mime
	}
	m.Width, m.Height = 1280, 720
	m.VideoCodec = "h264"
	m.FrameRate = 30
	if u.Scheme == "rtsp" {
		m.Live = true
		m.Duration = 0
	}
	return m, nil
}

type metadataRecord struct {
	key   int32
	write func(w *mediaplayer.MetadataWriter, key int32)
}

func stringRecord(key int32, v string) metadataRecord {
	return metadataRecord{key, func(w *mediaplayer.MetadataWriter, k int32) { w.AddString(k, v) }}
}

func int32Record(key, v int32) metadataRecord {
	return metadataRecord{key, func(w *mediaplayer.MetadataWriter, k int32) { w.AddInt32(k, v) }}
}

func boolRecord(key int32, v bool) metadataRecord {
	return metadataRecord{key, func(w *mediaplayer.MetadataWriter, k int32) { w.AddBool(k, v) }}
}

// metadataRecords lists the metadata the current source provides. Callers
// hold mu.
func (p *Player) metadataRecords() []metadataRecord {
	m := p.media
	seekable := !m.Live
	records := []metadataRecord{
		boolRecord(mediaplayer.MetadataPauseAvailable, true),
		boolRecord(mediaplayer.MetadataSeekAvailable, seekable),
		boolRecord(mediaplayer.MetadataSeekBackwardAvailable, seekable),
		boolRecord(mediaplayer.MetadataSeekForwardAvailable, seekable),
		int32Record(mediaplayer.MetadataNumTracks, int32(len(m.Tracks)+len(p.subs.list))),
		{mediaplayer.MetadataDate, func(w *mediaplayer.MetadataWriter, k int32) { w.AddTime(k, p.sourceSet) }},
	}
	if m.Title != "" {
		records = append(records, stringRecord(mediaplayer.MetadataTitle, m.Title))
	}
	if m.MimeType != "" {
		records = append(records, stringRecord(mediaplayer.MetadataMimeType, m.MimeType))
	}
	if !m.Live {
		records = append(records, int32Record(mediaplayer.MetadataDuration, int32(m.Duration.Milliseconds())))
	}
	if m.AudioCodec != "" {
		records = append(records,
			stringRecord(mediaplayer.MetadataAudioCodec, m.AudioCodec),
			int32Record(mediaplayer.MetadataAudioBitRate, m.AudioBitRate),
			int32Record(mediaplayer.MetadataAudioSampleRate, m.SampleRate),
		)
	}
	if m.HasVideo() {
		records = append(records,
			stringRecord(mediaplayer.MetadataVideoCodec, m.VideoCodec),
			int32Record(mediaplayer.MetadataVideoWidth, m.Width),
			int32Record(mediaplayer.MetadataVideoHeight, m.Height),
			int32Record(mediaplayer.MetadataVideoFrameRate, m.FrameRate),
		)
	}
	return records
}
