package query_test

import (
	"context"
	"fmt"

	"github.com/Dachi13/NetflixClone/bus/query"
	"github.com/Dachi13/NetflixClone/result"
)

func Example() {
	builder := query.NewBuilder(query.WithLogger(nil))
	query.MustRegister[GetUserByID, User](builder, query.HandlerFunc[GetUserByID, User](
		func(ctx context.Context, q GetUserByID) result.Result[User] {
			if q.ID != 1 {
				return result.Fail[User](result.NotFound("user.not_found", "пользователь не найден"))
			}
			return result.Ok(User{ID: 1, Name: "Ann"})
		},
	))
	dispatcher := builder.Build()

	ctx := context.Background()
	for _, id := range []int{1, 2} {
		res := query.Dispatch[GetUserByID, User](ctx, dispatcher, GetUserByID{ID: id})
		fmt.Println(result.Match(res,
			func(u User) string { return "ok: " + u.Name },
			func(e result.Error) string { return "error: " + e.Code },
		))
	}

	res := query.Dispatch[GetOrderByID, Order](ctx, dispatcher, GetOrderByID{ID: 99})
	e, _ := res.Error()
	fmt.Println("error:", e.Code)

	// Output:
	// ok: Ann
	// error: user.not_found
	// error: query.unregistered
}
