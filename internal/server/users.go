package server

import (
	"context"
	"fmt"
	"net/http"

	"pocamarket/internal/domain/entity"
	"pocamarket/internal/domain/service/user"
	"pocamarket/pkg/errcodes"
	"pocamarket/pkg/httpx/reply"
	"pocamarket/pkg/httpx/req"
	"pocamarket/pkg/lox"
	"pocamarket/pkg/rest"
)

type userService interface {
	Create(ctx context.Context, in user.NewUser) (entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
}

type UsersServer struct {
	userService userService
}

func NewUsersServer(userService userService) UsersServer {
	return UsersServer{
		userService: userService,
	}
}

func (s UsersServer) getV1Users(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	users, err := s.userService.List(ctx)
	if err != nil {
		return fmt.Errorf("userService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lox.Map(users, newRESTUser))

	return nil
}

func (s UsersServer) postV1Users(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.UserCreate

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	in, err := newDomainUser(request)
	if err != nil {
		return invalidArgument(fmt.Errorf("newDomainUser: %w", err), errcodes.ValidationError, "Invalid birth date")
	}

	u, err := s.userService.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("userService.Create: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTUser(u))

	return nil
}
