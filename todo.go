/*
	Project: Rollcall - attendance groups over roll call records
*/
package rollcall

/*
TODO: rolls & student roll states have no write path outside of tests: expose them through the API
TODO: POST /v1/groups/:id/run-filter to refresh a single group without waiting for the next run
TODO: keep the last N RunReports (table or redis list) and serve them under /v1/groups/runs

FIXME:Edge-case:
- a group updated while the filters run keeps the memberships computed from its previous rule until the next run
*/
