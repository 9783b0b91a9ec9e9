package services

import (
	"crypto/sha1"
	"encoding/binary"
	"strings"
)

// Stock ElevenLabs voice IDs used for narration
var narrationVoices = []string{
	"EXAVITQu4vr4xnSDxMaL",
	"21m00Tcm4TlvDq8ikWAM",
	"AZnzlk1XvdvUeBnXmlld",
	"ErXwobaYiN019PkySvjV",
	"MF3mGyEYCl7XYWbV9V6O",
	"pNInz6obpgDQGcFmaJgB",
	"TxGEqnHWrfWFTfGW9XjX",
	"VR6AewLTigWG4xSOukaG",
	"yoZ06aMxZJJ28mfd3POQ",
	"bVMeCyTHy58xNoL34h3p",
}

// PickNarrationVoice maps a username onto a stable voice so a user always hears the same narrator
func PickNarrationVoice(username string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(username))))
	idx := binary.BigEndian.Uint16(sum[:2]) % uint16(len(narrationVoices))
	return narrationVoices[idx]
}
