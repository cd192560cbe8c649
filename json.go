// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

// JSONServiceName is the JSON-RPC service prefix, as in "Player.Start".
const JSONServiceName = "Player"

// NewJSONHandler exposes the baseline operations of p as JSON-RPC 2.0 over
// HTTP. Player statuses are reported in the result; only a failed round trip
// to a remote player becomes a JSON-RPC error.
func NewJSONHandler(p Player, log *slog.Logger) (http.Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := gorillarpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	svc := &PlayerService{player: p, log: log.With("component", "json-rpc")}
	if err := s.RegisterService(svc, JSONServiceName); err != nil {
		return nil, fmt.Errorf("register player service: %w", err)
	}
	return s, nil
}

// PlayerService is the JSON-RPC receiver. Its methods follow the gorilla/rpc
// signature and are not meant to be called directly.
type PlayerService struct {
	player Player
	log    *slog.Logger
}

type NoArgs struct{}

// HeaderArg is one request header. Headers keep their order and may repeat.
type HeaderArg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SourceArgs struct {
	URL     string      `json:"url"`
	Headers []HeaderArg `json:"headers,omitempty"`
}

type SeekArgs struct {
	Msec int32 `json:"msec"`
}

type VolumeArgs struct {
	Left  float32 `json:"left"`
	Right float32 `json:"right"`
}

type LoopingArgs struct {
	Loop bool `json:"loop"`
}

type StreamTypeArgs struct {
	StreamType int32 `json:"streamType"`
}

type StatusReply struct {
	Status int32  `json:"status"`
	Error  string `json:"error,omitempty"`
}

type PositionReply struct {
	Msec int32 `json:"msec"`
	StatusReply
}

type PlayingReply struct {
	Playing bool `json:"playing"`
	StatusReply
}

// StateReply is a snapshot of the transport state.
type StateReply struct {
	Playing  bool  `json:"playing"`
	Position int32 `json:"position"`
	Duration int32 `json:"duration"`
	StatusReply
}

type OperationInfo struct {
	Code      uint32   `json:"code"`
	Name      string   `json:"name"`
	Request   []string `json:"request"`
	Reply     []string `json:"reply"`
	Extension bool     `json:"extension,omitempty"`
}

type DescribeReply struct {
	Descriptor string          `json:"descriptor"`
	Operations []OperationInfo `json:"operations"`
}

// fill records err in reply. Round-trip failures are returned instead.
func (s *PlayerService) fill(method string, err error, reply *StatusReply) error {
	if errors.Is(err, FailedTransaction) {
		s.log.Warn("player unreachable", "method", method, "error", err)
		return err
	}
	reply.Status = int32(StatusFromError(err))
	if err != nil {
		reply.Error = err.Error()
	}
	return nil
}

func (s *PlayerService) SetDataSource(r *http.Request, args *SourceArgs, reply *StatusReply) error {
	headers := make([]Header, len(args.Headers))
	for i, h := range args.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}
	err := SetDataSource(r.Context(), s.player, URLSource{URL: args.URL, Headers: headers})
	return s.fill("SetDataSource", err, reply)
}

func (s *PlayerService) PrepareAsync(r *http.Request, _ *NoArgs, reply *StatusReply) error {
	return s.fill("PrepareAsync", s.player.PrepareAsync(r.Context()), reply)
}

func (s *PlayerService) Start(r *http.Request, _ *NoArgs, reply *StatusReply) error {
	return s.fill("Start", s.player.Start(r.Context()), reply)
}

func (s *PlayerService) Stop(r *http.Request, _ *NoArgs, reply *StatusReply) error {
	return s.fill("Stop", s.player.Stop(r.Context()), reply)
}

func (s *PlayerService) Pause(r *http.Request, _ *NoArgs, reply *StatusReply) error {
	return s.fill("Pause", s.player.Pause(r.Context()), reply)
}

func (s *PlayerService) Reset(r *http.Request, _ *NoArgs, reply *StatusReply) error {
	return s.fill("Reset", s.player.Reset(r.Context()), reply)
}

func (s *PlayerService) SeekTo(r *http.Request, args *SeekArgs, reply *StatusReply) error {
	return s.fill("SeekTo", s.player.SeekTo(r.Context(), args.Msec), reply)
}

func (s *PlayerService) SetVolume(r *http.Request, args *VolumeArgs, reply *StatusReply) error {
	return s.fill("SetVolume", s.player.SetVolume(r.Context(), args.Left, args.Right), reply)
}

func (s *PlayerService) SetLooping(r *http.Request, args *LoopingArgs, reply *StatusReply) error {
	return s.fill("SetLooping", s.player.SetLooping(r.Context(), args.Loop), reply)
}

func (s *PlayerService) SetAudioStreamType(r *http.Request, args *StreamTypeArgs, reply *StatusReply) error {
	return s.fill("SetAudioStreamType", s.player.SetAudioStreamType(r.Context(), args.StreamType), reply)
}

func (s *PlayerService) IsPlaying(r *http.Request, _ *NoArgs, reply *PlayingReply) error {
	playing, err := s.player.IsPlaying(r.Context())
	reply.Playing = playing
	return s.fill("IsPlaying", err, &reply.StatusReply)
}

func (s *PlayerService) GetCurrentPosition(r *http.Request, _ *NoArgs, reply *PositionReply) error {
	msec, err := s.player.GetCurrentPosition(r.Context())
	reply.Msec = msec
	return s.fill("GetCurrentPosition", err, &reply.StatusReply)
}

func (s *PlayerService) GetDuration(r *http.Request, _ *NoArgs, reply *PositionReply) error {
	msec, err := s.player.GetDuration(r.Context())
	reply.Msec = msec
	return s.fill("GetDuration", err, &reply.StatusReply)
}

// State reports playing, position and duration together. The status is the
// first failure among the three queries.
func (s *PlayerService) State(r *http.Request, _ *NoArgs, reply *StateReply) error {
	ctx := r.Context()
	playing, err := s.player.IsPlaying(ctx)
	reply.Playing = playing
	if err == nil {
		reply.Position, err = s.player.GetCurrentPosition(ctx)
	}
	if err == nil {
		reply.Duration, err = s.player.GetDuration(ctx)
	}
	return s.fill("State", err, &reply.StatusReply)
}

// Describe lists the operation contract.
func (s *PlayerService) Describe(_ *http.Request, _ *NoArgs, reply *DescribeReply) error {
	reply.Descriptor = Descriptor
	for _, op := range Operations() {
		reply.Operations = append(reply.Operations, OperationInfo{
			Code:      uint32(op.Code),
			Name:      op.Name,
			Request:   fieldNameList(op.Request),
			Reply:     fieldNameList(op.Reply),
			Extension: op.Extension,
		})
	}
	return nil
}

func fieldNameList(fs []FieldType) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return names
}

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// jsonClient is shared by every bridge request. Keep-alives are off so a
// retried call never lands on a connection the service already dropped.
var jsonClient = &http.Client{
	Timeout:   30 * time.Second,
	Transport: &http.Transport{DisableKeepAlives: true},
}

// drainBody reads what is left of a reply body before closing it so the
// connection is not torn down mid-stream.
func drainBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// isRetryableError reports whether the request certainly never reached the
// service. Player operations are not idempotent, so nothing else is retried.
func isRetryableError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}

// SendJSONRequest calls a JSON-RPC method such as "Player.Start" and decodes
// the result into reply.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params any,
	reply any,
	headers http.Header,
) error {
	log := slog.Default().With("component", "json-rpc")
	requestBodyBytes, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			uri.String(),
			bytes.NewReader(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if headers != nil {
			request.Header = headers.Clone()
		}
		request.Header.Set("Content-Type", "application/json")

		resp, err := jsonClient.Do(request)
		if err != nil {
			lastErr = err
			log.Debug("request attempt failed", "method", method, "attempt", attempt+1, "error", err)
			if isRetryableError(err) {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			drainBody(resp.Body)
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		}

		err = json2.DecodeClientResponse(resp.Body, reply)
		drainBody(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to decode client response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}
