/*
Package domain contains the core models of the chatflow runtime.

It defines the typed flow graph authored by the chatbot builder (nodes, edges and
per-type configuration), the durable conversation Session, the items delivered to
the user and the error taxonomy shared by every other package. The package is kept
free of I/O and persistence concerns.

# Key Entities

  - FlowGraph: a validated template made of Nodes and Edges with exactly one start node.
  - NodeConfig: the sealed per-type configuration (text, input, conditional, ai, ...).
  - Session: the relocatable snapshot of one conversation (cursor, variables, status).
  - DeliveryItem: a text message or audio artifact the channel must deliver.
  - Inbound: the user's answer used to resume a suspended session.
*/
package domain
