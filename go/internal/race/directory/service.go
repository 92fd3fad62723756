package directory

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
)

const (
	// ServiceName is the fully-qualified name of the room directory service
	ServiceName = "velocity.race.v1.RoomDirectoryService"

	ListRoomsProcedure = "/" + ServiceName + "/ListRooms"
	GetRoomProcedure   = "/" + ServiceName + "/GetRoom"
)

// RoomDirectory defines what the service layer needs from the room store
type RoomDirectory interface {
	Rooms(ctx context.Context) ([]race.Summary, error)
	Room(ctx context.Context, code string) (race.Summary, error)
	Rules() race.Rules
}

// ListRoomsRequest filters the room listing
type ListRoomsRequest struct {
	Status   race.Status `json:"status,omitempty"`
	OpenOnly bool        `json:"openOnly,omitempty"`
}

type ListRoomsResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

type GetRoomRequest struct {
	Code string `json:"code"`
}

type GetRoomResponse struct {
	Room RoomInfo `json:"room"`
}

// RoomInfo is the lobby view of a room
type RoomInfo struct {
	Code        string       `json:"code"`
	Status      race.Status  `json:"status"`
	Players     []PlayerInfo `json:"players"`
	PlayerCount int          `json:"playerCount"`
	MaxPlayers  int          `json:"maxPlayers"`
	LapTarget   int          `json:"lapTarget"`
	Open        bool         `json:"open"`
	WinnerID    string       `json:"winnerId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
}

type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LapCount int    `json:"lapCount"`
}

// Service implements the read-only RoomDirectoryService
type Service struct {
	rooms RoomDirectory
}

// NewService creates a new room directory service
func NewService(rooms RoomDirectory) *Service {
	return &Service{
		rooms: rooms,
	}
}

// NewHandler builds an HTTP handler that serves the directory procedures.
// It returns the path prefix to mount the handler on.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListRoomsProcedure, connect.NewUnaryHandler(ListRoomsProcedure, svc.ListRooms, opts...))
	mux.Handle(GetRoomProcedure, connect.NewUnaryHandler(GetRoomProcedure, svc.GetRoom, opts...))
	return "/" + ServiceName + "/", mux
}

// ListRooms lists live rooms ordered by code
func (s *Service) ListRooms(ctx context.Context, req *connect.Request[ListRoomsRequest]) (*connect.Response[ListRoomsResponse], error) {
	summaries, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	rules := s.rooms.Rules()
	rooms := make([]RoomInfo, 0, len(summaries))
	for _, summary := range summaries {
		info := toRoomInfo(summary, rules)
		if req.Msg.Status != "" && info.Status != req.Msg.Status {
			continue
		}
		if req.Msg.OpenOnly && !info.Open {
			continue
		}
		rooms = append(rooms, info)
	}

	return connect.NewResponse(&ListRoomsResponse{
		Rooms: rooms,
	}), nil
}

// GetRoom retrieves a room by code
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[GetRoomRequest]) (*connect.Response[GetRoomResponse], error) {
	code := race.NormalizeCode(req.Msg.Code)
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}

	summary, err := s.rooms.Room(ctx, code)
	if err != nil {
		if errors.Is(err, race.ErrRoomNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetRoomResponse{
		Room: toRoomInfo(summary, s.rooms.Rules()),
	}), nil
}

func toRoomInfo(summary race.Summary, rules race.Rules) RoomInfo {
	players := make([]PlayerInfo, 0, len(summary.Players))
	for _, p := range summary.Players {
		players = append(players, PlayerInfo{
			ID:       p.ID,
			Name:     p.Name,
			LapCount: p.LapCount,
		})
	}

	return RoomInfo{
		Code:        summary.Code,
		Status:      summary.Status,
		Players:     players,
		PlayerCount: len(players),
		MaxPlayers:  rules.MaxPlayers,
		LapTarget:   rules.LapTarget,
		Open:        summary.Status == race.StatusForming && len(players) < rules.MaxPlayers,
		WinnerID:    summary.WinnerID,
		CreatedAt:   summary.CreatedAt,
		StartedAt:   summary.StartedAt,
	}
}

// Client calls the room directory over connect
type Client struct {
	listRooms *connect.Client[ListRoomsRequest, ListRoomsResponse]
	getRoom   *connect.Client[GetRoomRequest, GetRoomResponse]
}

// NewClient creates a directory client for the server at baseURL
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		listRooms: connect.NewClient[ListRoomsRequest, ListRoomsResponse](httpClient, baseURL+ListRoomsProcedure, opts...),
		getRoom:   connect.NewClient[GetRoomRequest, GetRoomResponse](httpClient, baseURL+GetRoomProcedure, opts...),
	}
}

// ListRooms calls RoomDirectoryService.ListRooms
func (c *Client) ListRooms(ctx context.Context, req *ListRoomsRequest) (*ListRoomsResponse, error) {
	resp, err := c.listRooms.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetRoom calls RoomDirectoryService.GetRoom
func (c *Client) GetRoom(ctx context.Context, code string) (*RoomInfo, error) {
	resp, err := c.getRoom.CallUnary(ctx, connect.NewRequest(&GetRoomRequest{Code: code}))
	if err != nil {
		return nil, err
	}
	return &resp.Msg.Room, nil
}
