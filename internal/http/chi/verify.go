package chi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/marcelsud/webhook-dispatch/webhook/signature"
)

/* VerifySignature is middleware for webhook receivers: it checks the
 * request body against the signature header before the handler runs
 * Requests without a valid signature are rejected with 401
 */
func VerifySignature(signers *signature.Registry, headerName, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(headerName)
			if provided == "" {
				http.Error(w, "missing signature", http.StatusUnauthorized)
				return
			}

			algorithm, _, err := signature.ParseSignature(provided)
			if err != nil {
				http.Error(w, "malformed signature", http.StatusUnauthorized)
				return
			}
			signer, err := signers.Resolve(algorithm)
			if err != nil {
				http.Error(w, "unsupported signature algorithm", http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "reading request body", http.StatusBadRequest)
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			ok, err := signer.Verify(body, secret, provided)
			if err != nil || !ok {
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
