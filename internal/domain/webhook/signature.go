// Package webhook verifica la autenticidad y frescura de las notificaciones firmadas
// por la pasarela de pagos (cabecera x-signature: "ts=<unix>,v1=<hex-hmac>").
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain"
)

// DefaultMaxAge antigüedad máxima aceptada de una notificación.
const DefaultMaxAge = 300 * time.Second

// Signature cabecera de firma ya parseada.
type Signature struct {
	Timestamp int64
	V1        string
}

// ParseSignature parsea "ts=<unix>,v1=<hex>". El orden de los campos es libre;
// campos desconocidos se ignoran. Falta de ts o v1 → ErrSignatureFormatInvalid.
func ParseSignature(header string) (Signature, error) {
	var sig Signature
	var hasTS bool
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return Signature{}, domain.ErrSignatureFormatInvalid
			}
			sig.Timestamp = ts
			hasTS = true
		case "v1":
			sig.V1 = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if !hasTS || sig.V1 == "" {
		return Signature{}, domain.ErrSignatureFormatInvalid
	}
	return sig, nil
}

// Manifest cadena canónica firmada: "id:<recurso>;request-id:<correlación>;ts:<ts>;".
// Los segmentos sin valor se omiten.
func Manifest(resourceID, requestID string, ts int64) string {
	var b strings.Builder
	if resourceID != "" {
		b.WriteString("id:" + resourceID + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + strconv.FormatInt(ts, 10) + ";")
	return b.String()
}

// Sign calcula el HMAC-SHA256 hexadecimal del manifiesto.
func Sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader arma la cabecera completa para un recurso (útil para clientes y pruebas).
func SignatureHeader(secret, resourceID, requestID string, ts int64) string {
	return "ts=" + strconv.FormatInt(ts, 10) + ",v1=" + Sign(secret, Manifest(resourceID, requestID, ts))
}

// Verifier valida firma y antigüedad (|now - ts| <= MaxAge).
type Verifier struct {
	Secret string
	MaxAge time.Duration
	Now    func() time.Time
}

// Verify comprueba primero la firma (comparación en tiempo constante) y luego la frescura.
// Devuelve ErrSignatureFormatInvalid, ErrSignatureInvalid o ErrTimestampExpired.
func (v Verifier) Verify(header, resourceID, requestID string) (Signature, error) {
	sig, err := ParseSignature(header)
	if err != nil {
		return Signature{}, err
	}
	expected := Sign(v.Secret, Manifest(resourceID, requestID, sig.Timestamp))
	if !hmac.Equal([]byte(expected), []byte(sig.V1)) {
		return sig, domain.ErrSignatureInvalid
	}
	maxAge := v.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	// La ventana aplica en ambos sentidos: un ts adelantado tampoco es reutilizable.
	age := now().Sub(time.Unix(sig.Timestamp, 0))
	if age > maxAge || age < -maxAge {
		return sig, domain.ErrTimestampExpired
	}
	return sig, nil
}
