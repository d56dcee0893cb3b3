package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/customer"
)

// Actor is the party a request acts as, resolved by the upstream identity
// collaborator and passed down via the X-Actor-Id header. Authentication of
// that header is the collaborator's job, not this layer's.
type Actor struct {
	ID   string
	Role customer.Role
}

type actorKey struct{}

// ActorFromContext extracts the resolved actor from the request context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// withActor resolves the X-Actor-Id header against the accounts store and puts
// the resulting Actor on the context. Requests without a resolvable actor are
// rejected before reaching the wrapped handler.
func (h *Handler) withActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Actor-Id")
		if id == "" {
			writeError(w, http.StatusUnauthorized, "X-Actor-Id header required")
			return
		}

		c, err := h.customers.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unknown actor")
				return
			}
			writeInternalError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, Actor{ID: c.ID, Role: c.Role})
		next(w, r.WithContext(ctx))
	}
}
