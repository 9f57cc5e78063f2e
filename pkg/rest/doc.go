// Package rest serves configured entities as a JSON REST API.
//
// Each entity registered with the Server maps to one database table and gets
// the full route set:
//
//	Route                    | Description
//	-------------------------|------------------------------------------------
//	GET    /{entity}         | List records (filter, sort, paginate, project)
//	GET    /{entity}/{id}    | Read one record by primary key
//	GET    /{entity}/schema  | Introspect the entity's field schema
//	POST   /{entity}         | Create one record or a batch
//	PATCH  /{entity}/{id}    | Update one record by primary key
//	PATCH  /{entity}         | Update every record matching the filter
//	PUT    /{entity}/{id}    | Not supported, responds 501
//	DELETE /{entity}/{id}    | Delete one record by primary key
//	DELETE /{entity}         | Delete every record matching the filter
//	GET    /                 | List the mounted entities
//	GET    /healthz          | Ping the active database pool
//
// Query parameters carry JSON documents:
//
//	Parameter                      | Description
//	-------------------------------|----------------------------------------
//	?filter={"age":{"$gte":21}}    | Conditions on fields, $or across them
//	?sort={"created_at":-1}        | Field to direction, 1 ascending, -1 descending
//	?pagination={"page":2,"perPage":25} | Page window, 1-based
//	?columns=id,email              | Project a subset of columns
//
// Every response is the same envelope: {"error": ..., "data": ...}, with
// rowCount on list and bulk responses and pagination when a page window was
// applied. Errors carry a name from the fixed taxonomy (ValidationError,
// NotFoundError, DatabaseError, ...) and map to the matching HTTP status.
//
// Example usage:
//
//	registry, err := entity.NewRegistry(entity.Config{
//		Table:      "public.sessions",
//		PrimaryKey: "session_id",
//		PrimaryKeyGUID: true,
//		Fields: map[string]entity.FieldRule{
//			"session_id":   {Type: entity.TypeString, Format: "uuid"},
//			"ip":           {Type: entity.TypeString, Format: "ipv4"},
//			"session_data": {Type: entity.TypeString},
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	server := rest.NewServer(registry, pools)
//	router := httputil.NewRouter()
//	server.Mount(router)
//	log.Fatal(router.ListenAndServe(":8080"))
package rest
