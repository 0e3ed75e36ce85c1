package sqlinline

const QUpsertOutput = `--sql 7e21c48f-90b5-4dd3-8a16-f5c3027e9b84
insert into outputs(
  id,
  project_id,
  product_id,
  source_url,
  storage_key,
  status,
  failure_reason,
  created_at,
  updated_at
) values (
  gen_random_uuid(),
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  now(),
  now()
)
on conflict (project_id, product_id) do update
set source_url = excluded.source_url,
    storage_key = excluded.storage_key,
    status = excluded.status,
    failure_reason = excluded.failure_reason,
    updated_at = now();
`

const QCountOutputs = `--sql 0a6d39e2-5cb8-4f17-942a-d81b60f3c5e9
select
  count(*) as total,
  count(*) filter (where product_id ilike '%' || $2::text || '%' escape '\') as filtered
from outputs
where project_id = $1::uuid;
`

const QPageOutputs = `--sql b43f17d6-28e0-4a95-bc38-60124a9d7fe5
select
  id,
  project_id,
  product_id,
  source_url,
  storage_key,
  status,
  failure_reason,
  created_at,
  updated_at
from outputs
where project_id = $1::uuid
  and product_id ilike '%' || $2::text || '%' escape '\'
order by updated_at desc, product_id asc
limit $3::int offset $4::int;
`

const QSelectOutputByProduct = `--sql f90c52ab-41e7-4068-9d2f-8ca1e53b7d26
select
  id,
  project_id,
  product_id,
  source_url,
  storage_key,
  status,
  failure_reason,
  created_at,
  updated_at
from outputs
where project_id = $1::uuid
  and product_id = $2::text
limit 1;
`

const QListSucceededOutputs = `--sql 2d84ea01-b6f3-4c59-a1e8-47905cd2f6b3
select
  id,
  project_id,
  product_id,
  source_url,
  storage_key,
  status,
  failure_reason,
  created_at,
  updated_at
from outputs
where project_id = $1::uuid
  and status = 'succeeded'
order by product_id asc;
`
