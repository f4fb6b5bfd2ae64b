// Package routing provides the segment trie that resolves request paths to
// ordered handler pipelines.
//
// Route templates are split into tokens by Settings.Split: literal segments
// keep their separator prefix ("/users"), segments matching the variable
// syntax become bare variable names ("id" for "{id}"). Every variable must be
// constrained by a regular expression when the route is added.
//
// Router.Match walks the trie level by level and returns a Match cursor.
// Each call to Match.Next consumes exactly one handler of the request's
// private pipeline and makes the next variable snapshot current.
//
// # Usage
//
//	router, err := routing.NewRouter[*Request](routing.DefaultSettings())
//	if err != nil {
//	    return err
//	}
//
//	err = router.Add(routing.Route[*Request]{
//	    Path:       "/users/{id}",
//	    Exact:      true,
//	    Constraint: routing.Constraint{"id": regexp.MustCompile(`^\d+$`)},
//	    OnMatch:    observer,
//	})
//
//	match := router.Match("/users/42", request)
//	for match.Len() > 0 {
//	    if _, err := match.Next(ctx); err != nil {
//	        return err
//	    }
//	}
package routing
