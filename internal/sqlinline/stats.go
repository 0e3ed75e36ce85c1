package sqlinline

const QStatsSummary = `--sql 8b5e20c6-d94a-4f31-b7c0-e16d843a95f2
select
  (select count(*) from frame_projects)                                  as projects_total,
  (select count(*) from frame_projects where status = 'processing')      as projects_processing,
  (select count(*) from frame_projects where status = 'completed')       as projects_completed,
  (select count(*) from frame_projects where status = 'failed')          as projects_failed,
  (select count(*) from outputs)                                         as outputs_total,
  (select count(*) from outputs where status = 'failed')                 as outputs_failed,
  (select count(*) from runs where status in ('queued', 'running'))      as runs_active;
`
