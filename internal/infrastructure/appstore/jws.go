package appstore

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"lumina/internal/domain/subscription"
)

// jwsHeader is the protected header of a signed payload. Apple embeds the
// full certificate chain in x5c with the leaf first.
type jwsHeader struct {
	Alg string   `json:"alg"`
	X5c []string `json:"x5c"`
}

// PayloadVerifier verifies the JWS payloads Apple signs (notifications,
// transaction info, renewal info) against the configured Apple root CAs.
type PayloadVerifier struct {
	roots *x509.CertPool
}

// NewPayloadVerifier builds a verifier from PEM-encoded root certificates.
// Production and sandbox share the same roots; the environment claim inside
// the payload is what distinguishes them.
func NewPayloadVerifier(rootPEM string) (*PayloadVerifier, error) {
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM([]byte(rootPEM)) {
		return nil, fmt.Errorf("no valid root certificates in configuration")
	}
	return &PayloadVerifier{roots: roots}, nil
}

// Verify checks the x5c chain and the ES256 signature of a signed payload
// and returns the raw claims bytes. Any failure surfaces as
// ErrVerificationFailed so callers treat tampered and malformed payloads
// the same way.
func (v *PayloadVerifier) Verify(signedPayload string) ([]byte, error) {
	parts := strings.Split(signedPayload, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: payload is not a compact JWS", subscription.ErrVerificationFailed)
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid header encoding", subscription.ErrVerificationFailed)
	}

	var header jwsHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: invalid header", subscription.ErrVerificationFailed)
	}
	if header.Alg != "ES256" {
		return nil, fmt.Errorf("%w: unexpected algorithm %s", subscription.ErrVerificationFailed, header.Alg)
	}
	if len(header.X5c) == 0 {
		return nil, fmt.Errorf("%w: missing certificate chain", subscription.ErrVerificationFailed)
	}

	leaf, err := v.verifyChain(header.X5c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", subscription.ErrVerificationFailed, err)
	}

	publicKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: leaf certificate is not ECDSA", subscription.ErrVerificationFailed)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(signature) != 64 {
		return nil, fmt.Errorf("%w: invalid signature encoding", subscription.ErrVerificationFailed)
	}

	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	if !ecdsa.Verify(publicKey, digest[:], r, s) {
		return nil, fmt.Errorf("%w: signature mismatch", subscription.ErrVerificationFailed)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payload encoding", subscription.ErrVerificationFailed)
	}

	return payload, nil
}

// verifyChain parses the x5c certificates and verifies the leaf up to one of
// the configured roots.
func (v *PayloadVerifier) verifyChain(x5c []string) (*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(x5c))
	for i, encoded := range x5c {
		der, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("certificate %d is not valid base64", i)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("certificate %d does not parse: %v", i, err)
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("chain does not verify: %v", err)
	}

	return certs[0], nil
}
