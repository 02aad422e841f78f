package server

// Server объединяет HTTP-серверы отдельных сущностей.
type Server struct {
	SalesServer
	UsersServer
	PhotoCardsServer
}

func NewServer(
	salesServer SalesServer,
	usersServer UsersServer,
	photoCardsServer PhotoCardsServer,
) Server {
	return Server{
		SalesServer:      salesServer,
		UsersServer:      usersServer,
		PhotoCardsServer: photoCardsServer,
	}
}
