package sqlinline

const QInsertProject = `--sql 3b8f21aa-6c0d-4a4e-9f1b-2e7d85c3a910
insert into frame_projects(
  id,
  owner_id,
  name,
  template_key,
  template_format,
  template_width,
  template_height,
  feed_url,
  status,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::int,
  $7::int,
  $8::text,
  'draft',
  now(),
  now()
);
`

const QSelectProjectByID = `--sql 9d4e7c12-08b3-47f5-b6a9-51c2de08f374
select
  id,
  owner_id,
  name,
  template_key,
  template_format,
  template_width,
  template_height,
  feed_url,
  rect_x,
  rect_y,
  rect_w,
  rect_h,
  coordinates_set,
  status,
  progress_total,
  progress_processed,
  progress_failed,
  created_at,
  updated_at
from frame_projects
where id = $1::uuid
limit 1;
`

const QListProjects = `--sql 5a91cd04-77e2-4b38-8d50-93fa6b1e42c7
select
  id,
  owner_id,
  name,
  template_key,
  template_format,
  template_width,
  template_height,
  feed_url,
  rect_x,
  rect_y,
  rect_w,
  rect_h,
  coordinates_set,
  status,
  progress_total,
  progress_processed,
  progress_failed,
  created_at,
  updated_at
from frame_projects
order by created_at desc
limit $1::int offset $2::int;
`

const QUpdateProjectRect = `--sql c2f60e9b-3d15-4af8-a2c4-07b9e64d5f18
update frame_projects
set rect_x = $2::int,
    rect_y = $3::int,
    rect_w = $4::int,
    rect_h = $5::int,
    coordinates_set = true,
    status = case when status = 'draft' then 'coordinates_set' else status end,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateProjectStatus = `--sql e7a3b518-92cf-4d06-bf71-48d0c5a2e693
update frame_projects
set status = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateProjectProgress = `--sql 1f5d08c7-ab64-4e29-9307-d6b28f41ca05
update frame_projects
set progress_total = $2::int,
    progress_processed = $3::int,
    progress_failed = $4::int,
    updated_at = now()
where id = $1::uuid;
`

const QDeleteProject = `--sql 84b2f9e0-15da-4c73-a8e6-390c7d51b246
delete from frame_projects
where id = $1::uuid;
`

const QProjectExists = `--sql 6c09a3d5-e841-4f62-b09d-72e5f18c4ab3
select exists(
  select 1 from frame_projects where id = $1::uuid
);
`

const QListProjectIDs = `--sql da47e51b-30c6-4f98-8a2d-61e0b3c7f925
select id from frame_projects;
`
