package app

import (
	"crypto/rand"
	"math/big"

	"red-herring-service/internal/domain"
)

const roomCodeChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateRoomCode returns a random base-36 room code.
func GenerateRoomCode() (string, error) {
	code := make([]byte, domain.RoomCodeLength)
	max := big.NewInt(int64(len(roomCodeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = roomCodeChars[n.Int64()]
	}
	return string(code), nil
}
