// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package testplan loads INI test plans into testcomm.Plan values.
//
// A plan file has one [TestInfo] section describing the emulated board and
// TestNum step sections named [Test1] to [TestN]:
//
//	[TestInfo]
//	BoardType = FI        ; MS, DI, DO, FI or AI
//	SysAorB   = A
//	MorS      = AA        ; Controller header tag: AA, AB, BA or BB
//	UseCha    = Cha1      ; Cha1, Cha2 or ChaAll
//	TestNum   = 1
//
//	[Test1]
//	StrIndex        = 0
//	EndIndex        = 99
//	TimeStampOffset = NULL
//	CrcM            = NULL
//	Crc             = 0xDEADBEEF
//	SendTimes       = 1
//	UseCha          = NULL
//	CandID          = NULL
//
// Every key is required. NULL marks an absent value. Numbers are decimal or
// 0x prefixed hex.
package testplan

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

// Null is the literal marking an absent optional value
const Null = "NULL"

const infoSection = "TestInfo"

var (
	infoKeys = []string{"BoardType", "SysAorB", "MorS", "UseCha", "TestNum"}
	stepKeys = []string{"StrIndex", "EndIndex", "TimeStampOffset", "CrcM", "Crc", "SendTimes", "UseCha", "CandID"}
)

var boardTypes = map[string]testcomm.BoardType{
	"MS": testcomm.BoardMS,
	"DI": testcomm.BoardDI,
	"DO": testcomm.BoardDO,
	"FI": testcomm.BoardFI,
	"AI": testcomm.BoardAI,
}

var sideTags = map[string]uint8{"AA": 0xAA, "AB": 0xAB, "BA": 0xBA, "BB": 0xBB}

var channelSelectors = map[string]testcomm.ChannelSelector{
	"Cha1":   testcomm.ChannelA,
	"Cha2":   testcomm.ChannelB,
	"ChaAll": testcomm.ChannelBoth,
}

// ConfigError reports a malformed or incomplete plan
type ConfigError struct {
	Section string
	Key     string
	Reason  string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("test plan [%s]: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("test plan [%s] %s: %s", e.Section, e.Key, e.Reason)
}

// Load reads and parses a plan file
func Load(path string) (*testcomm.Plan, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test plan %s: %w", path, err)
	}
	return fromFile(f)
}

// Parse parses plan file contents
func Parse(data []byte) (*testcomm.Plan, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse test plan: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*testcomm.Plan, error) {
	info, err := section(f, infoSection, infoKeys)
	if err != nil {
		return nil, err
	}

	plan := &testcomm.Plan{}

	name := value(info, "BoardType")
	bt, ok := boardTypes[name]
	if !ok {
		return nil, &ConfigError{Section: infoSection, Key: "BoardType", Reason: fmt.Sprintf("unknown board type %q", name)}
	}
	plan.Board = bt
	if bt == testcomm.BoardMS {
		plan.Mode = testcomm.ModeController
	} else {
		plan.Mode = testcomm.ModePeripheral
	}

	switch side := value(info, "SysAorB"); side {
	case "A":
		plan.Side = testcomm.SideA
	case "B":
		plan.Side = testcomm.SideB
	default:
		return nil, &ConfigError{Section: infoSection, Key: "SysAorB", Reason: fmt.Sprintf("expected A or B, got %q", side)}
	}

	tag := value(info, "MorS")
	if plan.SideTag, ok = sideTags[tag]; !ok {
		return nil, &ConfigError{Section: infoSection, Key: "MorS", Reason: fmt.Sprintf("expected AA, AB, BA or BB, got %q", tag)}
	}

	cha := value(info, "UseCha")
	if plan.DefaultChannels, ok = channelSelectors[cha]; !ok {
		return nil, &ConfigError{Section: infoSection, Key: "UseCha", Reason: fmt.Sprintf("expected Cha1, Cha2 or ChaAll, got %q", cha)}
	}

	count, err := number(info, "TestNum")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &ConfigError{Section: infoSection, Key: "TestNum", Reason: "plan has no steps"}
	}

	for i := 1; i <= int(count); i++ {
		s, err := parseStep(f, fmt.Sprintf("Test%d", i), plan.DefaultChannels)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, s)
	}

	if err := plan.Validate(); err != nil {
		return nil, &ConfigError{Section: infoSection, Reason: err.Error()}
	}
	return plan, nil
}

func parseStep(f *ini.File, name string, defaultChannels testcomm.ChannelSelector) (testcomm.TestStep, error) {
	var s testcomm.TestStep

	sec, err := section(f, name, stepKeys)
	if err != nil {
		return s, err
	}

	if s.StartIndex, err = number(sec, "StrIndex"); err != nil {
		return s, err
	}
	if s.EndIndex, err = number(sec, "EndIndex"); err != nil {
		return s, err
	}
	if s.StartIndex > s.EndIndex {
		return s, &ConfigError{Section: name, Key: "EndIndex", Reason: fmt.Sprintf("%d is before StrIndex %d", s.EndIndex, s.StartIndex)}
	}
	if s.SendRepeat, err = number(sec, "SendTimes"); err != nil {
		return s, err
	}
	if s.TimestampOffset, err = optional(sec, "TimeStampOffset"); err != nil {
		return s, err
	}
	if s.CRCM, err = optional(sec, "CrcM"); err != nil {
		return s, err
	}
	if s.CRC, err = optional(sec, "Crc"); err != nil {
		return s, err
	}
	if s.ID, err = optional(sec, "CandID"); err != nil {
		return s, err
	}
	if s.ID != nil && *s.ID > 0x7FF {
		return s, &ConfigError{Section: name, Key: "CandID", Reason: fmt.Sprintf("0x%X is not an 11 bit identifier", *s.ID)}
	}

	cha := value(sec, "UseCha")
	if cha == Null {
		s.Channels = defaultChannels
	} else {
		var ok bool
		if s.Channels, ok = channelSelectors[cha]; !ok {
			return s, &ConfigError{Section: name, Key: "UseCha", Reason: fmt.Sprintf("expected Cha1, Cha2, ChaAll or NULL, got %q", cha)}
		}
	}

	return s, nil
}

// section returns a section after checking that every key is present
func section(f *ini.File, name string, keys []string) (*ini.Section, error) {
	sec, err := f.GetSection(name)
	if err != nil {
		return nil, &ConfigError{Section: name, Reason: "section missing"}
	}
	for _, k := range keys {
		if !sec.HasKey(k) {
			return nil, &ConfigError{Section: name, Key: k, Reason: "key missing"}
		}
	}
	return sec, nil
}

func value(sec *ini.Section, key string) string {
	return strings.TrimSpace(sec.Key(key).String())
}

// number parses a required 32 bit value
func number(sec *ini.Section, key string) (uint32, error) {
	raw := value(sec, key)
	if raw == Null {
		return 0, &ConfigError{Section: sec.Name(), Key: key, Reason: "value is required"}
	}
	n, err := parseUint32(raw)
	if err != nil {
		return 0, &ConfigError{Section: sec.Name(), Key: key, Reason: err.Error()}
	}
	return n, nil
}

// optional parses a 32 bit value that may be NULL
func optional(sec *ini.Section, key string) (*uint32, error) {
	if value(sec, key) == Null {
		return nil, nil
	}
	n, err := number(sec, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseUint32 accepts decimal or 0x prefixed hex. A leading zero does not
// select octal.
func parseUint32(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(n), nil
}
