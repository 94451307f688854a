package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"aoe-stats/internal/domain"
	"aoe-stats/internal/service"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	StatsServiceName = "aoestats.v1.StatsService"

	RefreshProcedure        = "/" + StatsServiceName + "/Refresh"
	PlayedTogetherProcedure = "/" + StatsServiceName + "/PlayedTogether"
)

// RPCServer exposes the same operations as HTTPServer over Connect, using
// well-known protobuf types as messages.
type RPCServer struct {
	refreshSvc *service.RefreshService
	matchSvc   *service.MatchService
}

func NewRPCServer(refreshSvc *service.RefreshService, matchSvc *service.MatchService) *RPCServer {
	return &RPCServer{refreshSvc: refreshSvc, matchSvc: matchSvc}
}

// Handler returns the path prefix and handler to mount on a mux.
func (s *RPCServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	refresh := connect.NewUnaryHandler(RefreshProcedure, s.Refresh, opts...)
	together := connect.NewUnaryHandler(PlayedTogetherProcedure, s.PlayedTogether, opts...)

	return "/" + StatsServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RefreshProcedure:
			refresh.ServeHTTP(w, r)
		case PlayedTogetherProcedure:
			together.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *RPCServer) Refresh(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	report, err := s.refreshSvc.Refresh(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	msg, err := structpb.NewStruct(map[string]any{
		"cycle_id":       report.CycleID,
		"started_at":     report.StartedAt.UTC().Format(time.RFC3339),
		"duration_ms":    report.Duration.Milliseconds(),
		"players_synced": report.PlayersSynced,
		"players_failed": report.PlayersFailed,
		"matches_added":  report.MatchesAdded,
		"matches_total":  report.MatchesTotal,
		"excluded":       report.Excluded,
		"shared":         report.Shared,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// PlayedTogether takes a list of player names and returns the matches as a
// list of objects shaped like the matches document entries.
func (s *RPCServer) PlayedTogether(ctx context.Context, req *connect.Request[structpb.ListValue]) (*connect.Response[structpb.ListValue], error) {
	var names []string
	for _, v := range req.Msg.GetValues() {
		name, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("player names must be strings"))
		}
		names = append(names, name.StringValue)
	}

	matches, err := s.matchSvc.PlayedTogether(ctx, names)
	if errors.Is(err, service.ErrUnknownPlayer) || errors.Is(err, service.ErrNoPlayers) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	items := make([]any, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchValue(m))
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

func matchValue(m domain.Match) map[string]any {
	participants := make([]any, 0, len(m.Participants))
	for _, p := range m.Participants {
		var won any
		if p.Won != nil {
			won = *p.Won
		}
		participants = append(participants, map[string]any{
			"name":        p.Name,
			"external_id": p.ExternalID,
			"won":         won,
		})
	}
	return map[string]any{
		"match_id":     m.MatchID,
		"participants": participants,
	}
}
