package tencent

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Sign produces the request signature for the AKSK scheme used by the
// upstream meeting API. The canonical string is
//
//	method\nX-TC-Key={id}&X-TC-Nonce={nonce}&X-TC-Timestamp={ts}\nuri\nbody
//
// and the result is the base64 encoding of the lowercase hex digest of the
// HMAC-SHA256 mac. The hex-then-base64 step is an upstream contract; sending
// base64 of the raw mac is rejected.
func Sign(secretID, secretKey, method, uri string, timestamp int64, nonce, body string) string {
	headerString := fmt.Sprintf("X-TC-Key=%s&X-TC-Nonce=%s&X-TC-Timestamp=%d", secretID, nonce, timestamp)
	content := fmt.Sprintf("%s\n%s\n%s\n%s", method, headerString, uri, body)

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(content))
	hexDigest := hex.EncodeToString(mac.Sum(nil))

	return base64.StdEncoding.EncodeToString([]byte(hexDigest))
}

// Nonce returns a fresh 8-digit decimal nonce in [10000000, 99999999].
func Nonce() string {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a time-derived value rather than aborting the call.
		return fmt.Sprintf("%08d", 10000000+time.Now().UnixNano()%90000000)
	}
	return fmt.Sprintf("%d", 10000000+n.Int64())
}

// Timestamp returns the current Unix time in seconds.
func Timestamp() int64 {
	return time.Now().Unix()
}
