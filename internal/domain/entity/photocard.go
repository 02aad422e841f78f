package entity

type Group struct {
	ID   int64
	Name string
}

type Artist struct {
	ID    int64
	Name  string
	Group *Group
}

type PhotoCard struct {
	ID      int64
	Title   string
	Artists []Artist
}
