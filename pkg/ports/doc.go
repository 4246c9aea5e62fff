/*
Package ports defines the driven ports (interfaces) of the chatflow runtime.

These interfaces decouple the interpreter from external collaborators, so the
same engine runs against in-memory, file, redis or sqlite backends and any
action backend the host provides.

# Key Interfaces

  - TemplateStore: returns published flow graphs by template id.
  - TemplateRepository: a TemplateStore that also manages drafts.
  - SessionStore: persists and loads conversation session snapshots.
  - ActionBackend: executes the backend operations named by action nodes.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
