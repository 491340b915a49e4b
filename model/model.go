package model

// Point2D is both an absolute position and an axis-aligned direction vector.
type Point2D struct {
	X int `json:"X"`
	Y int `json:"Y"`
}

type Wall struct {
	ID int     `json:"wall"`
	P1 Point2D `json:"p1"`
	P2 Point2D `json:"p2"`
}

type Snake struct {
	ID           int       `json:"snake"`
	Name         string    `json:"name"`
	Body         []Point2D `json:"body"`
	Dir          Point2D   `json:"dir"`
	Score        int       `json:"score"`
	Died         bool      `json:"died"`
	Alive        bool      `json:"alive"`
	Disconnected bool      `json:"dc"`
	Joined       bool      `json:"join"`

	// HighestScoreSeen is tracked by the session, never sent by the server.
	HighestScoreSeen int `json:"-"`
}

// Head is the last body point, or false for an empty body.
func (s Snake) Head() (Point2D, bool) {
	if len(s.Body) == 0 {
		return Point2D{}, false
	}
	return s.Body[len(s.Body)-1], true
}

func (s Snake) clone() Snake {
	s.Body = append([]Point2D(nil), s.Body...)
	return s
}

type Powerup struct {
	ID   int     `json:"power"`
	Loc  Point2D `json:"loc"`
	Died bool    `json:"died"`
}
