package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	IDSize     = 24
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

func NanoID() string {
	return gonanoid.MustGenerate(idAlphabet, IDSize)
}
