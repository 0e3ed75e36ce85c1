package sqlinline

const QEnqueueRun = `--sql 58d0b7c3-f2a9-4e16-8b4d-c915e0a2d738
insert into runs(id, project_id, status, created_at)
values ($1::uuid, $2::uuid, 'queued', now())
returning id, project_id, status, attempted, succeeded, failed, failures, error, created_at, started_at, completed_at;
`

const QClaimRun = `--sql a1c94e67-03df-4b82-95a0-7f6e21d8c354
with next_run as (
    select id
    from runs
    where status = 'queued'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update runs
    set status = 'running', started_at = now()
    where id in (select id from next_run)
    returning id, project_id, status, attempted, succeeded, failed, failures, error, created_at, started_at, completed_at
)
select * from updated;
`

const QSelectRunByID = `--sql 4fb8d2a0-9c61-4753-ae2b-08d5f3c79e14
select id, project_id, status, attempted, succeeded, failed, failures, error, created_at, started_at, completed_at
from runs
where id = $1::uuid
limit 1;
`

const QUpdateRunProgress = `--sql d6529f84-1be0-4ca7-b3f6-a92c07e84d51
update runs
set attempted = $2::int,
    succeeded = $3::int,
    failed = $4::int
where id = $1::uuid;
`

const QCompleteRun = `--sql 93e7a0d2-64cf-4518-bd09-1fa8c5e26b47
update runs
set status = 'completed',
    attempted = $2::int,
    succeeded = $3::int,
    failed = $4::int,
    failures = $5::jsonb,
    completed_at = now()
where id = $1::uuid;
`

const QFailRun = `--sql 61d3c8f5-a027-4be4-92c1-5e80b4f6a9d2
update runs
set status = 'failed',
    error = $2::text,
    completed_at = now()
where id = $1::uuid;
`

const QCancelRun = `--sql ce06b1a8-57f4-40d9-8e35-29c6d0a41f87
update runs
set status = 'canceled',
    error = $2::text,
    completed_at = now()
where id = $1::uuid;
`

const QQueueDepth = `--sql 07f4d5b9-82ea-46c0-a1d8-36b95c2e07f4
select count(*)
from runs
where status = 'queued';
`
