package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"gomokubot/engine"
)

const (
	// RpcBotMove is the RPC id clients call to get the bot's reply.
	RpcBotMove = "gomoku_bot_move"

	// Nakama/gRPC status codes.
	codeInvalidArgument = 3
	codeInternal        = 13
)

var botEngine = engine.NewEngine()

// RegisterRPCs registers all Gomoku RPCs.
func RegisterRPCs(initializer runtime.Initializer) error {
	return initializer.RegisterRpc(RpcBotMove, RpcBotMoveHandler)
}

// RpcBotMoveHandler picks the bot's next move for a board.
//
// Payload: {"board": [[0,1,2,...],...], "last_move": {"row": r, "col": c}, "difficulty": "easy"|"medium"|"hard"}
// Returns: {"move": {"row": r, "col": c} | null, "score": s, "depth": d, "stats": {...}}
func RpcBotMoveHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req engine.MoveRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	request, err := req.Request()
	if err != nil {
		logger.Warn("RpcBotMove [User:%s]: rejected request: %v", userID, err)
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}

	result, err := botEngine.ChooseMove(ctx, request)
	if err != nil {
		if isPreconditionError(err) {
			return "", runtime.NewError(err.Error(), codeInvalidArgument)
		}
		logger.Error("RpcBotMove [User:%s]: search failed: %v", userID, err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	if result.Stats.Truncated {
		logger.Warn("RpcBotMove [User:%s]: search truncated after %d/%d candidates", userID, result.Stats.RootCompleted, result.Stats.RootCandidates)
	}

	resBytes, err := json.Marshal(engine.NewMoveResponse(result))
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(resBytes), nil
}

func isPreconditionError(err error) bool {
	return errors.Is(err, engine.ErrInvalidBoard) ||
		errors.Is(err, engine.ErrPositionOutOfRange) ||
		errors.Is(err, engine.ErrUnknownDifficulty)
}
