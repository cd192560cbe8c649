// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"fmt"

	"github.com/luxfi/mediaplayer/parcel"
)

// Parameter keys understood by SetParameter and GetParameter.
const (
	// KeyTimedTextTrackIndex selects the timed text track by index; -1
	// disables timed text.
	KeyTimedTextTrackIndex int32 = 1000
	// KeyTimedTextAddOutOfBandSource adds an external timed text file by URL.
	KeyTimedTextAddOutOfBandSource int32 = 1001
)

func SetIntParameter(ctx context.Context, p Player, key, v int32) error {
	value := parcel.New()
	value.WriteInt32(v)
	value.SetDataPosition(0)
	return p.SetParameter(ctx, key, value)
}

func SetStringParameter(ctx context.Context, p Player, key int32, v string) error {
	value := parcel.New()
	value.WriteString8(v)
	value.SetDataPosition(0)
	return p.SetParameter(ctx, key, value)
}

func GetIntParameter(ctx context.Context, p Player, key int32) (int32, error) {
	reply := parcel.New()
	if err := p.GetParameter(ctx, key, reply); err != nil {
		return 0, err
	}
	reply.SetDataPosition(0)
	v := reply.ReadInt32()
	if err := reply.Err(); err != nil {
		return 0, fmt.Errorf("%w: parameter %d: %w", NotEnoughData, key, err)
	}
	return v, nil
}

func GetStringParameter(ctx context.Context, p Player, key int32) (string, error) {
	reply := parcel.New()
	if err := p.GetParameter(ctx, key, reply); err != nil {
		return "", err
	}
	reply.SetDataPosition(0)
	v := reply.ReadString8()
	if err := reply.Err(); err != nil {
		return "", fmt.Errorf("%w: parameter %d: %w", NotEnoughData, key, err)
	}
	return v, nil
}
