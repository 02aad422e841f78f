package middlewarex

import (
	"net/http"
	"strconv"

	"pocamarket/pkg/contextx"
	"pocamarket/pkg/logx"
)

// headerNameUserID проставляется шлюзом перед сервисом; сам сервис пользователей
// не аутентифицирует.
const headerNameUserID = "X-User-Id"

func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(headerNameUserID)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			logger(r.Context()).Warn("invalid user id header", logx.Error(err))
			next.ServeHTTP(w, r)

			return
		}

		ctx := contextx.WithUserID(r.Context(), contextx.UserID(id))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
