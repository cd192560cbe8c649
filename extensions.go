// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

// Subtitle stream types reported in SubtitleInfo.Type.
const (
	SubtitleText   int32 = 0
	SubtitleBitmap int32 = 1
)

// Stereoscopic layouts of the source picture (SetInputDimensionType).
const (
	Picture3DNone             int32 = 0
	Picture3DDoubleStream     int32 = 1
	Picture3DSideBySide       int32 = 2
	Picture3DTopToBottom      int32 = 3
	Picture3DLineInterleave   int32 = 4
	Picture3DColumnInterleave int32 = 5
)

// Output presentation modes (SetOutputDimensionType).
const (
	Display2D          int32 = 0
	Display3D          int32 = 1
	DisplayHalfPicture int32 = 2
	DisplayAnaglyph    int32 = 3
)

// Anaglyph filters (SetAnaglyphType), used with DisplayAnaglyph.
const (
	AnaglyphRedBlue    int32 = 0
	AnaglyphRedGreen   int32 = 1
	AnaglyphRedCyan    int32 = 2
	AnaglyphColor      int32 = 3
	AnaglyphHalfColor  int32 = 4
	AnaglyphOptimized  int32 = 5
	AnaglyphYellowBlue int32 = 6
)

// Charset names understood by SetSubCharset. Players may accept others.
const (
	CharsetUnknown     = "UNKNOWN"
	CharsetBig5        = "Big5"
	CharsetGB18030     = "GB18030"
	CharsetGBK         = "GBK"
	CharsetEUCJP       = "EUC-JP"
	CharsetEUCKR       = "EUC-KR"
	CharsetShiftJIS    = "Shift_JIS"
	CharsetISO88591    = "ISO-8859-1"
	CharsetKOI8R       = "KOI8-R"
	CharsetUSASCII     = "US-ASCII"
	CharsetUTF8        = "UTF-8"
	CharsetUTF16LE     = "UTF-16LE"
	CharsetUTF16BE     = "UTF-16BE"
	CharsetWindows1251 = "windows-1251"
	CharsetWindows1252 = "windows-1252"
)
